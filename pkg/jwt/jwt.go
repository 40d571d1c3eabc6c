package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JWT header values. Only HS256 is issued or accepted.
const (
	HeaderType      = "JWT"
	HeaderAlgorithm = "HS256"
)

// Header is the JOSE header of RFC 7515.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Config is the environment-driven JWT configuration.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY" yaml:"signing_key"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"vtn" yaml:"issuer"`
	TTL        time.Duration `env:"JWT_TTL" envDefault:"1h" yaml:"ttl"`
}

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// New creates a Service from cfg. The signing key is required.
func New(cfg Config) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Service{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		ttl:        cfg.TTL,
	}, nil
}

// NewFromString creates a Service with only a signing key and default TTL.
func NewFromString(signingKey string) (*Service, error) {
	return New(Config{SigningKey: signingKey})
}

// Issue signs a Claims token for subject with the service's issuer and TTL.
func (s *Service) Issue(subject string, roles ...Role) (string, error) {
	if subject == "" {
		return "", ErrMissingClaims
	}
	now := time.Now()
	return s.Generate(Claims{
		StandardClaims: StandardClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
		Roles: roles,
	})
}

// Generate signs any JSON-serializable claims value.
func (s *Service) Generate(claims any) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	headerJSON, err := json.Marshal(Header{Type: HeaderType, Algorithm: HeaderAlgorithm})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	payload := encodeSegment(headerJSON) + "." + encodeSegment(claimsJSON)
	return payload + "." + s.sign(payload), nil
}

// Parse verifies token and decodes its claims into claims. If claims
// implements Valid() error, temporal claims are checked too. Claims embedding
// StandardClaims must carry the service's issuer when one is configured.
func (s *Service) Parse(token string, claims any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrInvalidToken
	}

	// Constant-time comparison.
	expected := s.sign(parts[0] + "." + parts[1])
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return ErrInvalidSignature
	}

	headerJSON, err := decodeSegment(parts[0])
	if err != nil {
		return fmt.Errorf("failed to decode header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return fmt.Errorf("failed to unmarshal header: %w", err)
	}
	if header.Algorithm != HeaderAlgorithm {
		return ErrUnexpectedSigningMethod
	}

	claimsJSON, err := decodeSegment(parts[1])
	if err != nil {
		return fmt.Errorf("failed to decode claims: %w", err)
	}
	if err := json.Unmarshal(claimsJSON, claims); err != nil {
		return errors.Join(ErrInvalidClaims, err)
	}

	if v, ok := claims.(interface{ Valid() error }); ok {
		if err := v.Valid(); err != nil {
			return err
		}
	}
	if s.issuer != "" {
		if c, ok := claims.(interface{ issuedBy() string }); ok && c.issuedBy() != s.issuer {
			return errors.Join(ErrInvalidIssuer, fmt.Errorf("got %q, want %q", c.issuedBy(), s.issuer))
		}
	}
	return nil
}

func (s *Service) sign(payload string) string {
	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(payload))
	return encodeSegment(h.Sum(nil))
}

func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
