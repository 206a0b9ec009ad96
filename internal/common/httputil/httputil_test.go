package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "pwd-access/internal/common/errors"
	"pwd-access/internal/common/requestctx"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		ServiceID int64 `json:"serviceId"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"serviceId": 3}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, int64(3), dst.ServiceID)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"serviceId":`))
	err := DecodeJSON(r, &dst)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err = DecodeJSON(r, &dst)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestIDParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/applications/12", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "12")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	id, err := IDParam(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "-4")
	_, err = IDParam(r, "id")
	assert.Error(t, err)
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=2&dateFrom=2024-03-01&bad=x", nil)

	page, err := QueryInt(r, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page)

	limit, err := QueryInt(r, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	_, err = QueryInt(r, "bad", 0)
	assert.Error(t, err)

	from, err := QueryDate(r, "dateFrom")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", from.Format("2006-01-02"))
}

func TestActor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Actor(r)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))

	r = r.WithContext(requestctx.WithActor(r.Context(), models.Actor{UserID: 1, Role: models.SuperAdmin{}}))
	a, err := Actor(r)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.UserID)
}
