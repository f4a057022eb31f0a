package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymzhao891/medichat/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewJWTVerifier("secret")
	ctx := context.Background()

	token, err := v.Issue(&Principal{ID: "u1", Role: domain.ActorRoleClinician, Name: "Dr. Bob"}, time.Minute)
	require.NoError(t, err)

	p, err := v.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, domain.ActorRoleClinician, p.Role)
	assert.Equal(t, "Dr. Bob", p.Name)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewJWTVerifier("secret")
	ctx := context.Background()

	_, err := v.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Signed with a different key.
	other := NewJWTVerifier("other-secret")
	token, err := other.Issue(&Principal{ID: "u1", Role: domain.ActorRolePatient}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewJWTVerifier("secret")

	token, err := v.Issue(&Principal{ID: "u1", Role: domain.ActorRolePatient}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRequiresRole(t *testing.T) {
	v := NewJWTVerifier("secret")

	token, err := v.Issue(&Principal{ID: "u1"}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
