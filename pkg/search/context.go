package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

const blockSeparator = "\n\n"

// OrderForIntent returns primary followed by related, reordered for intent.
// Problem solving puts incidents first and knowledge second. Knowledge
// acquisition puts knowledge first by descending confidence. Every other
// intent keeps the input order. All reorderings are stable.
func OrderForIntent(primary, related []*types.Entity, intent types.Intent) []*types.Entity {
	all := make([]*types.Entity, 0, len(primary)+len(related))
	all = append(all, primary...)
	all = append(all, related...)

	switch intent {
	case types.IntentProblemSolving:
		rank := func(e *types.Entity) int {
			switch e.Kind {
			case types.KindIncident:
				return 0
			case types.KindKnowledge:
				return 1
			}
			return 2
		}
		sort.SliceStable(all, func(i, j int) bool { return rank(all[i]) < rank(all[j]) })

	case types.IntentKnowledgeAcquisition:
		confidence := func(e *types.Entity) (float64, bool) {
			if k, ok := e.Knowledge(); ok {
				return k.ConfidenceScore, true
			}
			return 0, false
		}
		sort.SliceStable(all, func(i, j int) bool {
			ci, ki := confidence(all[i])
			cj, kj := confidence(all[j])
			if ki != kj {
				return ki
			}
			return ki && ci > cj
		})
	}
	return all
}

// AssembleContext renders the results into one text of at most maxLength
// characters. Entities are appended whole in intent order; assembly stops at
// the first entity that does not fit. A relationship summary follows when
// room remains.
func AssembleContext(primary, related []*types.Entity, rels []*types.Relationship, intent types.Intent, maxLength int) string {
	if maxLength <= 0 {
		maxLength = types.DefaultMaxContextLength
	}

	var b strings.Builder
	used := 0
	appendBlock := func(block string) bool {
		size := utils.RuneLen(block)
		if used > 0 {
			size += len(blockSeparator)
		}
		if used+size > maxLength {
			return false
		}
		if used > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		used += size
		return true
	}

	for _, e := range OrderForIntent(primary, related, intent) {
		if !appendBlock(RenderEntity(e)) {
			break
		}
	}
	if summary := RelationshipSummary(rels); summary != "" {
		appendBlock(summary)
	}
	return b.String()
}

// RenderEntity formats one entity as a fixed-field block.
func RenderEntity(e *types.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", e.Title)
	fmt.Fprintf(&b, "Kind: %s", e.Kind)
	if e.Body != "" {
		fmt.Fprintf(&b, "\n%s", e.Body)
	}

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n%s: %s", label, value)
		}
	}

	switch p := e.Payload.(type) {
	case *types.KnowledgePayload:
		line("Domain", p.Domain)
		line("Confidence", fmt.Sprintf("%.2f", p.ConfidenceScore))
		line("Verification", p.VerificationStatus)
		line("Source", p.SourceType)
	case *types.IncidentPayload:
		line("Severity", p.Severity)
		line("Status", p.Status)
		line("Affected systems", strings.Join(p.AffectedSystems, ", "))
		line("Root cause", p.RootCause)
		line("Resolution steps", strings.Join(p.ResolutionSteps, "; "))
		line("Lessons learned", strings.Join(p.LessonsLearned, "; "))
	case *types.TaskPayload:
		line("Task type", p.TaskType)
		line("Status", p.Status)
		line("Assigned to", p.AssignedWorker)
		line("Completion", fmt.Sprintf("%.0f%%", p.CompletionPercentage))
		if len(p.Dependencies) > 0 {
			line("Depends on", strings.Join(p.Dependencies, ", "))
		}
	}

	line("Tags", strings.Join(e.Tags(), ", "))
	if !e.CreatedAt.IsZero() {
		line("Created", e.CreatedAt.UTC().Format("2006-01-02"))
	}
	return b.String()
}

// RelationshipSummary counts relationships per type, most frequent first.
func RelationshipSummary(rels []*types.Relationship) string {
	if len(rels) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, r := range rels {
		counts[r.RelationshipType]++
	}
	relTypes := make([]string, 0, len(counts))
	for t := range counts {
		relTypes = append(relTypes, t)
	}
	sort.Slice(relTypes, func(i, j int) bool {
		if counts[relTypes[i]] != counts[relTypes[j]] {
			return counts[relTypes[i]] > counts[relTypes[j]]
		}
		return relTypes[i] < relTypes[j]
	})

	parts := make([]string, len(relTypes))
	for i, t := range relTypes {
		parts[i] = fmt.Sprintf("%s (%d)", t, counts[t])
	}
	return "Relationships: " + strings.Join(parts, ", ")
}

// FailureContext explains a failed search within maxLength characters.
func FailureContext(query string, err error, maxLength int) string {
	if maxLength <= 0 {
		maxLength = types.DefaultMaxContextLength
	}
	msg := fmt.Sprintf("Search for %q could not be completed: %v. No results are available; try again later or narrow the query.", query, err)
	return utils.TruncateRunes(msg, maxLength)
}
