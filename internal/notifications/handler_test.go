package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/requestctx"
	"pwd-access/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc *Service, actor *models.Actor) http.Handler {
	r := chi.NewRouter()
	if actor != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(requestctx.WithActor(req.Context(), *actor)))
			})
		})
	}
	NewHandler(svc, logger.NewTestLogger(t)).Register(r)
	return r
}

func TestHandler_ListAndMarkRead(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, logger.NewNoOpLogger())
	n, err := svc.Create(context.Background(), Request{UserID: 5, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)

	actor := models.Actor{UserID: 5, Role: models.CitizenRole{CitizenID: 42}}
	router := newTestRouter(t, svc, &actor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Notifications, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+itoa(n.ID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	assert.JSONEq(t, `{"unread":0}`, rec.Body.String())
}

func TestHandler_MarkRead_NotOwned(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, logger.NewNoOpLogger())
	n, err := svc.Create(context.Background(), Request{UserID: 5, Type: "custom", Title: "t", Message: "m"})
	require.NoError(t, err)

	actor := models.Actor{UserID: 8, Role: models.CitizenRole{CitizenID: 3}}
	rec := httptest.NewRecorder()
	newTestRouter(t, svc, &actor).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+itoa(n.ID), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RequiresActor(t *testing.T) {
	svc := NewService(newMemoryStore(), logger.NewNoOpLogger())
	rec := httptest.NewRecorder()
	newTestRouter(t, svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
