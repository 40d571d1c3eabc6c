package jwt

import (
	"slices"
	"time"
)

// StandardClaims holds the registered claims of RFC 7519 section 4.1.
// Temporal claims are Unix seconds; zero means unset.
type StandardClaims struct {
	ID        string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	Audience  string `json:"aud,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// Valid checks exp and nbf against the current time.
func (c StandardClaims) Valid() error {
	now := time.Now().Unix()
	if c.ExpiresAt > 0 && now > c.ExpiresAt {
		return ErrExpiredToken
	}
	if c.NotBefore > 0 && now < c.NotBefore {
		return ErrInvalidToken
	}
	return nil
}

func (c StandardClaims) issuedBy() string { return c.Issuer }

// RoleKind is an OpenADR VTN authorization role.
type RoleKind string

const (
	RoleAnyBusiness RoleKind = "AnyBusiness"
	RoleBusiness    RoleKind = "Business"
	RoleUserManager RoleKind = "UserManager"
	RoleVENManager  RoleKind = "VenManager"
	RoleVEN         RoleKind = "VEN"
)

// Role grants a RoleKind, scoped to a business or VEN ID where the kind
// requires one.
type Role struct {
	Role RoleKind `json:"role"`
	ID   string   `json:"id,omitempty"`
}

// Claims is the access token issued to VTN clients. Subject identifies the
// client and keys its notifier channel.
type Claims struct {
	StandardClaims
	Roles []Role `json:"roles,omitempty"`
}

// HasRole reports whether the claims grant kind, for any scope.
func (c Claims) HasRole(kind RoleKind) bool {
	return slices.ContainsFunc(c.Roles, func(r Role) bool { return r.Role == kind })
}

// VENIDs returns the VEN IDs the token is scoped to.
func (c Claims) VENIDs() []string {
	var ids []string
	for _, r := range c.Roles {
		if r.Role == RoleVEN && r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
