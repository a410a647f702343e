package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Fadhlan-athha/manajemen-warga/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Field: "national_id", Message: "bad"}, http.StatusBadRequest},
		{&service.ConflictError{Conflicts: []service.Conflict{{Field: "national_id", Value: "1"}}}, http.StatusConflict},
		{&service.ScopeViolation{Scope: "rt:02", Subdivision: "01"}, http.StatusForbidden},
		{&service.ForbiddenError{Role: "treasurer", Feature: "letters"}, http.StatusForbidden},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound},
		{&service.TransientServiceError{Op: "existence check", Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestWriteError_Envelopes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/public/api/v1/census", nil)

	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), req, &service.ConflictError{Conflicts: []service.Conflict{{Field: "family_card_number", Value: "3201000000009999"}}})
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Code   int    `json:"code"`
		Type   string `json:"type"`
		Result struct {
			Conflicts []service.Conflict `json:"conflicts"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, ResultConflict, conflict.Code)
	assert.Equal(t, "warning", conflict.Type)
	assert.Equal(t, []service.Conflict{{Field: "family_card_number", Value: "3201000000009999"}}, conflict.Result.Conflicts)

	rec = httptest.NewRecorder()
	writeError(rec, zap.NewNop(), req, service.ErrUnauthenticated)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var expired Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expired))
	assert.Equal(t, ResultTokenExpired, expired.Code)

	rec = httptest.NewRecorder()
	writeError(rec, zap.NewNop(), req, errors.New("pq: connection reset"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var internal Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &internal))
	assert.Equal(t, "internal error", internal.Message)
}
