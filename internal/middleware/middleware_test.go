package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/service"
	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "mw-secret"

type stubUserService struct {
	service.UserService
	ensured []string
	err     error
}

func (s *stubUserService) EnsureUser(_ context.Context, id *token.Identity) (model.Role, error) {
	if s.err != nil {
		return "", s.err
	}
	s.ensured = append(s.ensured, id.UserID)
	role, _ := service.RoleMapping{ProfessorRole: "prof", StudentRole: "etudiant"}.Resolve(id)
	return role, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(users service.UserService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(token.NewHMACVerifier(secret), users)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": gin.H{"user_id": id.UserID, "role": CurrentRole(c)}})
	})
	r.GET("/probe", handlers...)
	return r
}

func issue(t *testing.T, sub string, roles ...string) string {
	t.Helper()
	raw, err := token.NewHMACIssuer(secret, time.Minute).Issue(sub, sub+"-name", roles...)
	require.NoError(t, err)
	return raw
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	users := &stubUserService{}
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, "s-1", "etudiant"))

	w, env := do(t, newRouter(users), req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"s-1","role":"student"}`, string(env.Data))
	assert.Equal(t, []string{"s-1"}, users.ensured)
}

func TestAuthMiddleware_CookieFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: issue(t, "p-1", "prof")})

	w, env := do(t, newRouter(&stubUserService{}), req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"p-1","role":"professor"}`, string(env.Data))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := map[string]func(*http.Request){
		"missing":    func(*http.Request) {},
		"not bearer": func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"bad token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"bad cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "nope"}) },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			users := &stubUserService{}
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			prepare(req)
			w, env := do(t, newRouter(users), req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, http.StatusUnauthorized, env.Code)
			assert.Empty(t, users.ensured)
		})
	}
}

func TestAuthMiddleware_DirectoryFailure(t *testing.T) {
	users := &stubUserService{err: appErrors.Internal("写入用户目录失败", errors.New("db down"))}
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, "s-1", "etudiant"))

	w, env := do(t, newRouter(users), req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, env.Message, "db down")
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		guard  gin.HandlerFunc
		status int
	}{
		{"student allowed", []string{"etudiant"}, RequireMessagingRole(), http.StatusOK},
		{"professor allowed", []string{"prof"}, RequireMessagingRole(), http.StatusOK},
		{"no messaging role", []string{"admin"}, RequireMessagingRole(), http.StatusForbidden},
		{"wrong role", []string{"etudiant"}, RequireRole(model.RoleProfessor), http.StatusForbidden},
		{"right role", []string{"prof"}, RequireRole(model.RoleProfessor), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, "u-1", tt.roles...))
			w, _ := do(t, newRouter(&stubUserService{}, tt.guard), req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/probe", RequireMessagingRole(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
