package middleware

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

type stubAuthenticator struct {
	actor model.Actor
	err   error
}

func (s stubAuthenticator) Authenticate(token string) (model.Actor, error) {
	if token != "good" {
		return model.Actor{}, errors.Unauthorized(stderrors.New("invalid token"))
	}
	return s.actor, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(actor model.Actor, roles ...model.Role) *gin.Engine {
	r := gin.New()
	m := NewAuthMiddleware(stubAuthenticator{actor: actor})
	r.GET("/secure", m.Authenticate(), RequireRole(roles...), func(c *gin.Context) {
		got, _ := ActorFrom(c)
		c.String(http.StatusOK, got.ID.String())
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authRouter(actor, model.RoleDoctor).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, actor.ID.String(), w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	authRouter(actor, model.RoleDoctor, model.RoleAdmin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient role")
}

func TestRequireRoleWithoutActor(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
