package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leca/tiered-images/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{model.ErrUnauthorized, http.StatusUnauthorized, `{"detail":"Invalid token"}`},
		{fmt.Errorf("image x: %w", model.ErrForbidden), http.StatusForbidden, `{"detail":"You do not have permission to perform this action."}`},
		{model.ErrNotFound, http.StatusNotFound, `{"detail":"Not found."}`},
		{ErrInvalidPage, http.StatusNotFound, `{"detail":"Invalid page."}`},
		{fmt.Errorf("decode: %w", model.ErrInvalidImageFormat), http.StatusBadRequest, `{"image":["` + invalidImageMessage + `"]}`},
		{model.ErrTierNotFound, http.StatusInternalServerError, `{"detail":"Account tier is not configured."}`},
		{fmt.Errorf("store k: %w: %w", model.ErrArtifactWriteFailed, errors.New("disk full")), http.StatusServiceUnavailable, `{"detail":"Image storage is unavailable, try again later."}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"detail":"Internal server error."}`},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
