package types

import (
	"fmt"
	"strings"
	"time"
)

// Relationship types produced by automatic detection.
const (
	RelationshipResolvedBy = "resolved_by"
	RelationshipRelatedTo  = "related_to"
)

// DefaultRelationshipWeight is used when a relationship is created without a weight.
const DefaultRelationshipWeight = 1.0

// Relationship is a directed, weighted edge between two entity ids. The
// endpoints are not required to exist.
type Relationship struct {
	SourceID         string                 `json:"source_id" yaml:"source_id"`
	TargetID         string                 `json:"target_id" yaml:"target_id"`
	RelationshipType string                 `json:"relationship_type" yaml:"relationship_type"`
	Weight           float64                `json:"weight" yaml:"weight"`
	Metadata         map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedBy        string                 `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt        time.Time              `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time              `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of r.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = cloneMap(r.Metadata)
	return &c
}

// Validate checks the edge identity fields.
func (r *Relationship) Validate() error {
	if r == nil {
		return NewValidationError("relationship", "cannot be nil")
	}
	if strings.TrimSpace(r.SourceID) == "" {
		return NewValidationError("source_id", "cannot be empty")
	}
	if strings.TrimSpace(r.TargetID) == "" {
		return NewValidationError("target_id", "cannot be empty")
	}
	if strings.TrimSpace(r.RelationshipType) == "" {
		return NewValidationError("relationship_type", "cannot be empty")
	}
	return nil
}

// ApplyDefaults sets the default weight when none was given.
func (r *Relationship) ApplyDefaults() {
	if r.Weight == 0 {
		r.Weight = DefaultRelationshipWeight
	}
}

// Key returns the (source, target, type) identity of the edge.
func (r *Relationship) Key() string {
	return r.SourceID + "\x00" + r.TargetID + "\x00" + r.RelationshipType
}

// Other returns the endpoint opposite to id.
func (r *Relationship) Other(id string) string {
	if r.SourceID == id {
		return r.TargetID
	}
	return r.SourceID
}

// Direction selects which edges of an entity to return.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ParseDirection parses out, in or both. The empty string means both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionOut:
		return DirectionOut, nil
	case DirectionIn:
		return DirectionIn, nil
	case DirectionBoth, "":
		return DirectionBoth, nil
	}
	return "", NewValidationError("direction", fmt.Sprintf("unknown direction %q", s))
}
