package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/server/dto"
)

// RelationshipHandler handles relationship writes
type RelationshipHandler struct {
	relationships recall.RelationshipManager
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(relationships recall.RelationshipManager) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

// Create handles POST /relationships. It answers 201 for a new edge and 200
// when an existing edge was updated.
func (h *RelationshipHandler) Create(c *gin.Context) {
	var req dto.RelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	created, err := h.relationships.CreateRelationship(c.Request.Context(), req.Relationship())
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RelationshipResponse{Created: created})
}

// Delete handles DELETE /relationships?source_id=&target_id=&relationship_type=
func (h *RelationshipHandler) Delete(c *gin.Context) {
	req := dto.RelationshipRequest{
		SourceID:         c.Query("source_id"),
		TargetID:         c.Query("target_id"),
		RelationshipType: c.Query("relationship_type"),
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	ok, err := h.relationships.DeleteRelationship(c.Request.Context(), req.SourceID, req.TargetID, req.RelationshipType)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeNotFound(c, "relationship not found")
		return
	}
	c.Status(http.StatusNoContent)
}
