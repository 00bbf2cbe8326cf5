package graph

import (
	"sort"
	"strings"

	"github.com/soundprediction/recall/pkg/types"
)

// DetectionCreator is recorded as created_by on detected relationships.
const DetectionCreator = "auto_detection"

// ResolutionTags mark knowledge that resolves incidents.
var ResolutionTags = []string{"solution", "fix", "resolution", "workaround", "runbook", "resolved"}

// DetectRelationships derives relationships between every pair of entities:
//   - incident and knowledge tagged with a resolution tag: incident resolved_by knowledge
//   - entities sharing a tag: related_to
//   - knowledge entities in the same non-general domain: related_to
//
// related_to edges point from the earlier to the later entity of the input.
// Each (source, target, type) is produced once.
func DetectRelationships(entities []*types.Entity) []*types.Relationship {
	var out []*types.Relationship
	seen := make(map[string]*types.Relationship)

	add := func(rel *types.Relationship, reason string) {
		if existing, ok := seen[rel.Key()]; ok {
			reasons, _ := existing.Metadata["reasons"].([]string)
			existing.Metadata["reasons"] = append(reasons, reason)
			return
		}
		rel.Weight = types.DefaultRelationshipWeight
		rel.CreatedBy = DetectionCreator
		rel.Metadata = map[string]interface{}{"reasons": []string{reason}}
		seen[rel.Key()] = rel
		out = append(out, rel)
	}

	tagSets := make([]map[string]bool, len(entities))
	for i, e := range entities {
		tagSets[i] = lowerSet(e.Tags())
	}

	for i := 0; i < len(entities); i++ {
		a := entities[i]
		if a == nil || a.ID == "" {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if b == nil || b.ID == "" || a.ID == b.ID {
				continue
			}

			if incident, knowledge, ok := resolutionPair(a, b, tagSets[i], tagSets[j]); ok {
				add(&types.Relationship{
					SourceID:         incident.ID,
					TargetID:         knowledge.ID,
					RelationshipType: types.RelationshipResolvedBy,
				}, "resolution_tag")
			}

			if shared := sharedTags(tagSets[i], tagSets[j]); len(shared) > 0 {
				add(&types.Relationship{
					SourceID:         a.ID,
					TargetID:         b.ID,
					RelationshipType: types.RelationshipRelatedTo,
				}, "shared_tags:"+strings.Join(shared, ","))
			}

			if domain, ok := sameDomain(a, b); ok {
				add(&types.Relationship{
					SourceID:         a.ID,
					TargetID:         b.ID,
					RelationshipType: types.RelationshipRelatedTo,
				}, "same_domain:"+domain)
			}
		}
	}

	return out
}

func resolutionPair(a, b *types.Entity, aTags, bTags map[string]bool) (incident, knowledge *types.Entity, ok bool) {
	switch {
	case a.Kind == types.KindIncident && b.Kind == types.KindKnowledge && hasResolutionTag(bTags):
		return a, b, true
	case b.Kind == types.KindIncident && a.Kind == types.KindKnowledge && hasResolutionTag(aTags):
		return b, a, true
	}
	return nil, nil, false
}

func hasResolutionTag(tags map[string]bool) bool {
	for _, t := range ResolutionTags {
		if tags[t] {
			return true
		}
	}
	return false
}

func sharedTags(a, b map[string]bool) []string {
	var shared []string
	for t := range a {
		if b[t] {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return shared
}

func sameDomain(a, b *types.Entity) (string, bool) {
	ka, ok := a.Knowledge()
	if !ok {
		return "", false
	}
	kb, ok := b.Knowledge()
	if !ok {
		return "", false
	}
	domain := strings.ToLower(strings.TrimSpace(ka.Domain))
	if domain == "" || domain == types.DefaultDomain {
		return "", false
	}
	return domain, domain == strings.ToLower(strings.TrimSpace(kb.Domain))
}

func lowerSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = true
		}
	}
	return set
}
