// Package identity resolves bearer tokens issued by the identity provider
// into verified principals. Role-gated operations trust the role claim
// carried here; they do not re-validate it against the directory.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/ymzhao891/medichat/internal/domain"
)

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Principal is a verified caller.
type Principal struct {
	ID   string
	Role domain.ActorRole
	Name string
}

// Verifier resolves a raw bearer token to a principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type claims struct {
	jwt.Claims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// JWTVerifier verifies HS256-signed tokens from the identity provider.
type JWTVerifier struct {
	key []byte
}

// NewJWTVerifier creates a verifier for the shared signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{key: []byte(secret)}
}

// Verify parses and verifies the token and extracts the role claim.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var cl claims
	if err := parsed.Claims(v.key, &cl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := cl.Validate(jwt.Expected{Time: time.Now()}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if cl.Subject == "" || cl.Role == "" {
		return nil, fmt.Errorf("%w: missing sub or role claim", ErrInvalidToken)
	}

	return &Principal{
		ID:   cl.Subject,
		Role: domain.ActorRole(cl.Role),
		Name: cl.Name,
	}, nil
}

// Issue signs a token for a principal. Used by tests and local tooling;
// production tokens come from the identity provider itself.
func (v *JWTVerifier) Issue(p *Principal, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: v.key},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", err
	}

	now := time.Now()
	cl := claims{
		Claims: jwt.Claims{
			Subject:  p.ID,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(p.Role),
		Name: p.Name,
	}
	return jwt.Signed(signer).Claims(cl).Serialize()
}
