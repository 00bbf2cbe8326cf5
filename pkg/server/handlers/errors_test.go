package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprediction/recall/pkg/server/dto"
	"github.com/soundprediction/recall/pkg/types"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", types.NewValidationError("title", "cannot be empty"), http.StatusBadRequest, dto.ErrCodeInvalidRequest},
		{"wrapped not found", fmt.Errorf("failed to get entity: %w", types.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"storage", types.NewStorageError("get", errors.New("disk I/O error")), http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable},
		{"storage timeout", types.NewStorageError("search", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, errCode := statusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errCode)
		})
	}
}
