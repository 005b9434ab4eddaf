package keycloak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ent-messaging-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.IdentityConfig{
		KeycloakURL:  srv.URL,
		Realm:        "ENT",
		ClientID:     "ENT",
		ClientSecret: "s3cret",
	})
}

func TestPasswordGrant_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/ENT/protocol/openid-connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ENT", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "lea", r.PostForm.Get("username"))
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":300,"refresh_token":"def","token_type":"Bearer"}`))
	})

	tokens, err := c.PasswordGrant(context.Background(), "lea", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", tokens.AccessToken)
	assert.Equal(t, 300, tokens.ExpiresIn)
	assert.Equal(t, "def", tokens.RefreshToken)
}

func TestPasswordGrant_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad credentials", http.StatusUnauthorized, `{"error":"invalid_grant","error_description":"Invalid user credentials"}`, ErrInvalidCredentials},
		{"disabled", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Account disabled"}`, ErrAccountDisabled},
		{"unparseable 400", http.StatusBadRequest, `oops`, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.PasswordGrant(context.Background(), "lea", "pw")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPasswordGrant_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.PasswordGrant(context.Background(), "lea", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrAccountDisabled)
}
