package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/sentinel"
)

// Claims binds a verification token to one document. DocID lives inside the
// signed payload so a token minted for document X can never replay against Y.
type Claims struct {
	DocID string `json:"doc_id"`
	jwt.RegisteredClaims
}

// Service mints and validates signed, expiring verification tokens. Stateless:
// nothing is persisted at issuance, validation is signature plus expiry.
type Service struct {
	signingKey []byte
	issuer     string
	defaultTTL time.Duration
	maxTTL     time.Duration
}

type Option func(*Service)

// WithDefaultTTL sets the lifetime used when Issue is called with a zero TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) { s.defaultTTL = ttl }
}

// WithMaxTTL caps caller-requested lifetimes so a collaborator cannot mint an
// effectively non-expiring token.
func WithMaxTTL(ttl time.Duration) Option {
	return func(s *Service) { s.maxTTL = ttl }
}

func New(signingKey, issuer string, opts ...Option) *Service {
	svc := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		defaultTTL: 15 * time.Minute,
		maxTTL:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Issue signs a token for the document. The issuer parameter overrides the
// service default when non-empty so callers can record which collaborator
// requested the artifact. A zero ttl means the service default.
func (s *Service) Issue(docID, issuer string, ttl time.Duration) (string, time.Time, error) {
	if docID == "" {
		return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "doc_id is required")
	}
	if len(s.signingKey) == 0 {
		return "", time.Time{}, dErrors.New(dErrors.CodeInternal, "signing key unavailable")
	}
	if issuer == "" {
		issuer = s.issuer
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if s.maxTTL > 0 && ttl > s.maxTTL {
		return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "requested ttl exceeds maximum token lifetime")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		DocID: docID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// Verify checks signature then expiry and returns the bound claims. A bad
// signature is always surfaced as sentinel.ErrSignatureInvalid, never folded
// into "expired": a forged token and a stale token are different facts.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, sentinel.ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, sentinel.ErrExpired
		default:
			return nil, sentinel.ErrSignatureInvalid
		}
	}
	if !parsed.Valid {
		return nil, sentinel.ErrSignatureInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.DocID == "" {
		return nil, sentinel.ErrSignatureInvalid
	}
	return claims, nil
}
