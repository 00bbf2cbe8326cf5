package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Payload is the kind-specific part of an Entity. The set of variants is
// closed: KnowledgePayload, IncidentPayload and TaskPayload.
type Payload interface {
	// Kind returns the entity kind this payload belongs to.
	Kind() EntityKind

	applyDefaults()
	field(key string) (interface{}, bool)
	clone() Payload
}

// Incident statuses
const (
	IncidentStatusOpen     = "open"
	IncidentStatusResolved = "resolved"
)

// Default payload values
const (
	DefaultConfidenceScore = 0.8
	DefaultDomain          = "general"
)

// KnowledgePayload holds the fields of a knowledge entity.
type KnowledgePayload struct {
	SourceType          string  `json:"source_type" yaml:"source_type"`
	ConfidenceScore     float64 `json:"confidence_score" yaml:"confidence_score"`
	VerificationStatus  string  `json:"verification_status" yaml:"verification_status"`
	UsageCount          int     `json:"usage_count" yaml:"usage_count"`
	EffectivenessRating float64 `json:"effectiveness_rating" yaml:"effectiveness_rating"`
	Domain              string  `json:"domain" yaml:"domain"`
}

func (p *KnowledgePayload) Kind() EntityKind { return KindKnowledge }

// The confidence score is never defaulted here: 0 is a valid score. It
// only starts at DefaultConfidenceScore when the payload is built by
// DefaultPayload or decoded without the field.
func (p *KnowledgePayload) applyDefaults() {
	if p.SourceType == "" {
		p.SourceType = "manual"
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = "unverified"
	}
	if p.Domain == "" {
		p.Domain = DefaultDomain
	}
}

func (p *KnowledgePayload) clone() Payload {
	c := *p
	return &c
}

func (p *KnowledgePayload) field(key string) (interface{}, bool) {
	switch key {
	case "source_type":
		return p.SourceType, true
	case "confidence_score":
		return p.ConfidenceScore, true
	case "verification_status":
		return p.VerificationStatus, true
	case "usage_count":
		return p.UsageCount, true
	case "effectiveness_rating":
		return p.EffectivenessRating, true
	case "domain":
		return p.Domain, true
	}
	return nil, false
}

// IncidentPayload holds the fields of an incident entity.
type IncidentPayload struct {
	Severity        string   `json:"severity" yaml:"severity"`
	Status          string   `json:"status" yaml:"status"`
	AffectedSystems []string `json:"affected_systems" yaml:"affected_systems"`
	ResolutionSteps []string `json:"resolution_steps" yaml:"resolution_steps"`
	RootCause       string   `json:"root_cause" yaml:"root_cause"`
	LessonsLearned  []string `json:"lessons_learned" yaml:"lessons_learned"`
}

func (p *IncidentPayload) Kind() EntityKind { return KindIncident }

func (p *IncidentPayload) applyDefaults() {
	if p.Severity == "" {
		p.Severity = "medium"
	}
	if p.Status == "" {
		p.Status = IncidentStatusOpen
	}
	if p.AffectedSystems == nil {
		p.AffectedSystems = []string{}
	}
	if p.ResolutionSteps == nil {
		p.ResolutionSteps = []string{}
	}
	if p.LessonsLearned == nil {
		p.LessonsLearned = []string{}
	}
}

func (p *IncidentPayload) clone() Payload {
	c := *p
	c.AffectedSystems = slices.Clone(p.AffectedSystems)
	c.ResolutionSteps = slices.Clone(p.ResolutionSteps)
	c.LessonsLearned = slices.Clone(p.LessonsLearned)
	return &c
}

func (p *IncidentPayload) field(key string) (interface{}, bool) {
	switch key {
	case "severity":
		return p.Severity, true
	case "status":
		return p.Status, true
	case "affected_systems":
		return p.AffectedSystems, true
	case "resolution_steps":
		return p.ResolutionSteps, true
	case "root_cause":
		return p.RootCause, true
	case "lessons_learned":
		return p.LessonsLearned, true
	}
	return nil, false
}

// Resolved reports whether the incident has been resolved.
func (p *IncidentPayload) Resolved() bool {
	return p != nil && p.Status == IncidentStatusResolved
}

// TaskPayload holds the fields of a task entity.
type TaskPayload struct {
	TaskType             string        `json:"task_type" yaml:"task_type"`
	Status               string        `json:"status" yaml:"status"`
	AssignedWorker       string        `json:"assigned_worker" yaml:"assigned_worker"`
	CompletionPercentage float64       `json:"completion_percentage" yaml:"completion_percentage"`
	Dependencies         []string      `json:"dependencies" yaml:"dependencies"`
	EstimatedDuration    time.Duration `json:"estimated_duration" yaml:"estimated_duration"`
	ActualDuration       time.Duration `json:"actual_duration" yaml:"actual_duration"`
}

func (p *TaskPayload) Kind() EntityKind { return KindTask }

func (p *TaskPayload) applyDefaults() {
	if p.TaskType == "" {
		p.TaskType = "general"
	}
	if p.Status == "" {
		p.Status = "pending"
	}
	if p.Dependencies == nil {
		p.Dependencies = []string{}
	}
}

func (p *TaskPayload) clone() Payload {
	c := *p
	c.Dependencies = slices.Clone(p.Dependencies)
	return &c
}

func (p *TaskPayload) field(key string) (interface{}, bool) {
	switch key {
	case "task_type":
		return p.TaskType, true
	case "status":
		return p.Status, true
	case "assigned_worker":
		return p.AssignedWorker, true
	case "completion_percentage":
		return p.CompletionPercentage, true
	case "dependencies":
		return p.Dependencies, true
	case "estimated_duration":
		return p.EstimatedDuration, true
	case "actual_duration":
		return p.ActualDuration, true
	}
	return nil, false
}

// DefaultPayload returns a payload for kind with every field at its default,
// or nil for kinds without a payload.
func DefaultPayload(kind EntityKind) Payload {
	var p Payload
	switch kind {
	case KindKnowledge:
		p = &KnowledgePayload{ConfidenceScore: DefaultConfidenceScore}
	case KindIncident:
		p = &IncidentPayload{}
	case KindTask:
		p = &TaskPayload{}
	default:
		return nil
	}
	p.applyDefaults()
	return p
}

// DecodePayload decodes raw JSON over the default payload of kind, so
// fields absent from raw keep their defaults. Empty input and kinds without
// a payload decode to nil.
func DecodePayload(kind EntityKind, raw []byte) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	p := DefaultPayload(kind)
	if p == nil {
		return nil, nil
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return p, nil
}

// EncodePayload encodes p as JSON. A nil payload encodes to "null".
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Kind(), err)
	}
	return data, nil
}
