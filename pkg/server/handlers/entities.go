package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/server/dto"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// EntityHandler handles entity requests
type EntityHandler struct {
	entities      recall.EntityManager
	relationships recall.RelationshipManager
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(entities recall.EntityManager, relationships recall.RelationshipManager) *EntityHandler {
	return &EntityHandler{entities: entities, relationships: relationships}
}

// Create handles POST /entities
func (h *EntityHandler) Create(c *gin.Context) {
	var e types.Entity
	if err := c.ShouldBindJSON(&e); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	if err := dto.ValidateEntity(&e); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	id, err := h.entities.CreateEntity(c.Request.Context(), &e)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateEntityResponse{ID: id})
}

// Get handles GET /entities/:id
func (h *EntityHandler) Get(c *gin.Context) {
	id := c.Param("id")
	e, err := h.entities.GetEntity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if e == nil {
		writeNotFound(c, "entity "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, e)
}

// Update handles PUT /entities/:id. The path id wins over the body.
func (h *EntityHandler) Update(c *gin.Context) {
	var e types.Entity
	if err := c.ShouldBindJSON(&e); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	if err := dto.ValidateEntity(&e); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	e.ID = c.Param("id")

	ok, err := h.entities.UpdateEntity(c.Request.Context(), &e)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeNotFound(c, "entity "+e.ID+" not found")
		return
	}
	c.JSON(http.StatusOK, &e)
}

// Delete handles DELETE /entities/:id
func (h *EntityHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.entities.DeleteEntity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeNotFound(c, "entity "+id+" not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /entities?kind=&limit=&offset=&status=&priority=&category=
// Comma separated filter values match any of the values.
func (h *EntityHandler) List(c *gin.Context) {
	opts := &store.ListOptions{
		Kind:    types.EntityKind(strings.ToLower(c.Query("kind"))),
		Limit:   store.DefaultListLimit,
		Filters: map[string]interface{}{},
	}

	var err error
	if v := c.Query("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 || opts.Limit > dto.MaxListLimit {
			writeBadRequest(c, "limit must be an integer between 0 and 1000")
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if opts.Offset, err = strconv.Atoi(v); err != nil || opts.Offset < 0 {
			writeBadRequest(c, "offset must be a non-negative integer")
			return
		}
	}
	for _, key := range store.ListFilterKeys {
		v := c.Query(key)
		if v == "" {
			continue
		}
		if values := types.StringList(v); len(values) > 1 {
			opts.Filters[key] = values
		} else {
			opts.Filters[key] = v
		}
	}

	entities, err := h.entities.ListEntities(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EntityListResponse{
		Entities: entities,
		Count:    len(entities),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// Relationships handles GET /entities/:id/relationships?direction=out|in|both
func (h *EntityHandler) Relationships(c *gin.Context) {
	dir, err := types.ParseDirection(c.Query("direction"))
	if err != nil {
		writeError(c, err)
		return
	}

	rels, err := h.relationships.GetRelationships(c.Request.Context(), c.Param("id"), dir)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RelationshipListResponse{
		Relationships: rels,
		Count:         len(rels),
		Direction:     dir,
	})
}
