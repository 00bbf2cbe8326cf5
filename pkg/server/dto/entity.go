package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/recall/pkg/types"
)

// Limits applied to request fields.
const (
	MaxTitleLength = 1024
	MaxBodyLength  = 1024 * 1024 // 1MB
	MaxListLimit   = 1000
)

// Validation errors
var (
	ErrTitleTooLong = errors.New("title exceeds maximum length (1024)")
	ErrBodyTooLong  = errors.New("body exceeds maximum length (1MB)")
	ErrMissingEdge  = errors.New("source_id, target_id and relationship_type are required")
)

// ValidateEntity checks request limits on an entity before it reaches the
// store, which applies the domain validation.
func ValidateEntity(e *types.Entity) error {
	if len(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(e.Body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// CreateEntityResponse is returned by POST /entities.
type CreateEntityResponse struct {
	ID string `json:"id"`
}

// EntityListResponse is returned by GET /entities.
type EntityListResponse struct {
	Entities []*types.Entity `json:"entities"`
	Count    int             `json:"count"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// RelationshipRequest creates a relationship.
type RelationshipRequest struct {
	SourceID         string                 `json:"source_id"`
	TargetID         string                 `json:"target_id"`
	RelationshipType string                 `json:"relationship_type"`
	Weight           float64                `json:"weight,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedBy        string                 `json:"created_by,omitempty"`
}

// Validate checks that the edge key is complete.
func (r *RelationshipRequest) Validate() error {
	if strings.TrimSpace(r.SourceID) == "" || strings.TrimSpace(r.TargetID) == "" || strings.TrimSpace(r.RelationshipType) == "" {
		return ErrMissingEdge
	}
	return nil
}

// Relationship converts the request to a relationship.
func (r *RelationshipRequest) Relationship() *types.Relationship {
	return &types.Relationship{
		SourceID:         r.SourceID,
		TargetID:         r.TargetID,
		RelationshipType: r.RelationshipType,
		Weight:           r.Weight,
		Metadata:         r.Metadata,
		CreatedBy:        r.CreatedBy,
	}
}

// RelationshipResponse reports the outcome of a relationship write.
type RelationshipResponse struct {
	Created bool `json:"created"`
}

// RelationshipListResponse is returned by GET /entities/:id/relationships.
type RelationshipListResponse struct {
	Relationships []*types.Relationship `json:"relationships"`
	Count         int                   `json:"count"`
	Direction     types.Direction       `json:"direction"`
}

// BuildGraphResponse is returned by POST /graph/build.
type BuildGraphResponse struct {
	Created int `json:"created"`
}
