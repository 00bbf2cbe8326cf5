package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/recall/pkg/server/dto"
	"github.com/soundprediction/recall/pkg/types"
)

// statusFor maps an error to an HTTP status and error code. Timeouts are
// checked before storage failures since a timed out storage call matches
// both.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, dto.ErrCodeInvalidRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, dto.ErrCodeNotFound
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout, dto.ErrCodeTimeout
	case errors.Is(err, types.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable
	}
	return http.StatusInternalServerError, dto.ErrCodeInternal
}

// writeError writes err as an ErrorResponse.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, dto.ErrorResponse{Error: code, Message: err.Error(), Code: status})
}

// writeBadRequest writes a 400 with message.
func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrCodeInvalidRequest, Message: message, Code: http.StatusBadRequest})
}

func writeNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: dto.ErrCodeNotFound, Message: message, Code: http.StatusNotFound})
}
