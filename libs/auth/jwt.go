package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload issued by the identity service.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c Claims) Session() Session {
	return Session{UserID: c.Subject, TenantID: c.TenantID, Role: c.Role}
}

// KeySource resolves RSA verification keys by kid.
type KeySource interface {
	Get(kid string) (*rsa.PublicKey, error)
}

// Verifier validates bearer tokens. HS256 is used when a shared secret is
// configured, RS256 when a key source is.
type Verifier struct {
	secret []byte
	keys   KeySource
	issuer string
	leeway time.Duration
}

type VerifierOptions struct {
	Secret string
	Keys   KeySource
	Issuer string
	Leeway time.Duration
}

func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Secret == "" && opts.Keys == nil {
		return nil, errors.New("auth: either a secret or a key source is required")
	}
	return &Verifier{
		secret: []byte(opts.Secret),
		keys:   opts.Keys,
		issuer: opts.Issuer,
		leeway: opts.Leeway,
	}, nil
}

func (v *Verifier) Parse(token string) (Session, error) {
	var methods []string
	if len(v.secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if v.keys != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, v.keyFunc, opts...)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return Session{}, fmt.Errorf("%w: missing subject or tenant", ErrInvalidToken)
	}
	return claims.Session(), nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.Get(kid)
	default:
		return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
	}
}

// SignHS256 issues a token for local development and tests.
func SignHS256(s Session, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: s.TenantID,
		Role:     s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
