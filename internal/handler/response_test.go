package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/block-palettes/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
	}{
		{"validation", apperror.ValidationFailed("name", "palette name is required"), 400, "validation_error", "palette name is required"},
		{"unauthenticated", apperror.Unauthenticated(), 401, "unauthorized", "authentication required"},
		{"forbidden", apperror.Forbidden("you do not own this palette"), 403, "forbidden", "you do not own this palette"},
		{"not found", apperror.NotFound("palette", "p1"), 404, "not_found", "palette not found with id p1"},
		{"conflict", apperror.Conflictf("username %q is already taken", "steve"), 409, "conflict", `username "steve" is already taken`},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("user", "u1")), 404, "not_found", "user not found with id u1"},
		{"unknown", errors.New("sql: connection refused at /var/lib/db"), 500, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Error)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.NotContains(t, rr.Body.String(), "/var/lib/db")
		})
	}
}

func TestWriteError_IncludesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("maxSlots", "too big"))
	assert.JSONEq(t, `{"error":"validation_error","message":"too big","field":"maxSlots"}`, rr.Body.String())
}

func TestWriteJSON_Nil(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "null\n", rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"name":"ok"}`, "ok", false},
		{"empty", ``, "", true},
		{"malformed", `{"name":`, "", true},
		{"unknown field", `{"name":"ok","extra":1}`, "", true},
		{"two objects", `{"name":"a"}{"name":"b"}`, "", true},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var p payload
			err := decodeJSON(rr, req, &p)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}
