package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-engine/internal/common/errors"
	"directory-engine/internal/identity"
)

func newIntrospectionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/directory/protocol/openid-connect/token/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "engine", r.PostForm.Get("client_id"))
		assert.NotEmpty(t, r.PostForm.Get("token"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode errors.ErrorCode
		wantSub  string
	}{
		{
			name:    "active token",
			status:  http.StatusOK,
			body:    `{"active":true,"sub":"user-1","username":"ada","realm_access":{"roles":["admin","offline_access"]}}`,
			wantSub: "user-1",
		},
		{
			name:     "inactive token",
			status:   http.StatusOK,
			body:     `{"active":false}`,
			wantCode: errors.ErrCodeUnauthenticated,
		},
		{
			name:     "provider down",
			status:   http.StatusServiceUnavailable,
			body:     `maintenance`,
			wantCode: errors.ErrCodeStoreError,
		},
		{
			name:     "garbage body",
			status:   http.StatusOK,
			body:     `<html>`,
			wantCode: errors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIntrospectionServer(t, tt.status, tt.body)
			client := NewKeycloakClient(server.URL+"/", "directory", "engine", "secret", nil)

			info, err := client.ValidateToken(context.Background(), "token-abc")
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.Normalize(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, info.Sub)
			assert.Contains(t, info.RealmAccess.Roles, "admin")
		})
	}
}

func TestResolver(t *testing.T) {
	server := newIntrospectionServer(t, http.StatusOK, `{"active":true,"sub":"user-9","realm_access":{"roles":["moderator"]}}`)
	resolver := NewResolver(NewKeycloakClient(server.URL, "directory", "engine", "secret", nil), "moderator")

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token-abc")

		id, err := resolver.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "user-9", id.UserID)
		assert.True(t, id.IsAdmin())
	})

	t.Run("no credentials is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		id, err := resolver.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, identity.Identity{}, id)
	})
}
