// Package identity carries the resolved caller of a request. The engine never
// authenticates; it only consumes what a Resolver produced.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Capability is an authorization level.
type Capability string

const (
	CapabilityAdmin Capability = "ADMIN"
	CapabilityOwner Capability = "OWNER"
	CapabilityNone  Capability = "NONE"
)

// Identity is the acting user. The zero value is an anonymous caller.
type Identity struct {
	UserID       string
	Capabilities []Capability
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

func (i Identity) Has(c Capability) bool {
	for _, have := range i.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (i Identity) IsAdmin() bool { return i.Has(CapabilityAdmin) }

// Owns reports whether the identity is the given owner.
func (i Identity) Owns(ownerID string) bool {
	return i.UserID != "" && i.UserID == ownerID
}

// Admin builds an administrator identity.
func Admin(userID string) Identity {
	return Identity{UserID: userID, Capabilities: []Capability{CapabilityAdmin}}
}

// User builds an identity with no capabilities.
func User(userID string) Identity {
	return Identity{UserID: userID}
}

// Resolver maps a request to an identity. A request without credentials
// resolves to the anonymous identity; invalid credentials are an error.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (Identity, error)
}

type ctxKey struct{}

func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

// HeaderResolver trusts identity headers set by an upstream gateway.
type HeaderResolver struct {
	AdminRole string
}

func (h HeaderResolver) Resolve(_ context.Context, r *http.Request) (Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return Identity{}, nil
	}
	return Identity{
		UserID:       userID,
		Capabilities: CapabilitiesFromRoles(splitRoles(r.Header.Get(HeaderUserRoles)), h.AdminRole),
	}, nil
}

func splitRoles(header string) []string {
	var roles []string
	for _, r := range strings.Split(header, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// CapabilitiesFromRoles maps role names to capabilities; adminRole grants ADMIN.
func CapabilitiesFromRoles(roles []string, adminRole string) []Capability {
	if adminRole == "" {
		adminRole = "admin"
	}
	for _, r := range roles {
		if strings.EqualFold(r, adminRole) {
			return []Capability{CapabilityAdmin}
		}
	}
	return nil
}

// BearerToken extracts the token of an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
