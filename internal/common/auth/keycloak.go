// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"directory-engine/internal/common/errors"
	commonhttp "directory-engine/internal/common/http"
	"directory-engine/internal/identity"
)

// KeycloakClient introspects access tokens against a Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *commonhttp.Client
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Scope       string `json:"scope,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	Sub         string `json:"sub,omitempty"`
	Iss         string `json:"iss,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, client *commonhttp.Client) *KeycloakClient {
	if client == nil {
		client = commonhttp.NewClient(commonhttp.Options{Timeout: 10 * time.Second})
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   client,
	}
}

// ValidateToken checks if an access token is valid and active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("create introspection request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeStoreError,
			Message:   "Identity provider unreachable",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeStoreError,
			Message:   "Identity provider error",
			Details:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
			Retryable: isTransientHTTPError(resp.StatusCode),
			Timestamp: time.Now().UTC(),
		}
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("decode introspection response: %w", err))
	}

	if !tokenInfo.Active || tokenInfo.Sub == "" {
		return nil, errors.NewUnauthenticatedError("token is expired, revoked or malformed")
	}

	return &tokenInfo, nil
}

func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// TokenValidator is the introspection half of KeycloakClient.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*TokenInfo, error)
}

// Resolver resolves bearer tokens through Keycloak.
type Resolver struct {
	validator TokenValidator
	adminRole string
}

func NewResolver(validator TokenValidator, adminRole string) *Resolver {
	return &Resolver{validator: validator, adminRole: adminRole}
}

func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (identity.Identity, error) {
	token := identity.BearerToken(req)
	if token == "" {
		return identity.Identity{}, nil
	}

	info, err := r.validator.ValidateToken(ctx, token)
	if err != nil {
		return identity.Identity{}, err
	}

	return identity.Identity{
		UserID:       info.Sub,
		Capabilities: identity.CapabilitiesFromRoles(info.RealmAccess.Roles, r.adminRole),
	}, nil
}
