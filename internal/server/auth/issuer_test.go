package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestIssuer(t *testing.T, secret string, lifetime time.Duration) (*Issuer, *fakeClock) {
	t.Helper()
	i, err := NewIssuer([]byte(secret), lifetime)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	i.now = clock.Now
	return i, clock
}

func TestNewIssuer_Config(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = NewIssuer([]byte("k"), 0)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestIssuer_RoundTrip(t *testing.T) {
	i, clock := newTestIssuer(t, "super-secret", time.Hour)

	tok, err := i.Issue(Claims{UserID: "u-1", UserName: "ann", Email: "ann@x.io"})
	require.NoError(t, err)

	c, err := i.Verify(tok)
	require.NoError(t, err)

	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, "ann", c.UserName)
	assert.Equal(t, "ann@x.io", c.Email)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IssuedAt.Equal(clock.t))
	assert.True(t, c.ExpiresAt.Equal(clock.t.Add(time.Hour)))
}

func TestIssuer_MinimalClaims(t *testing.T) {
	i, _ := newTestIssuer(t, "k", time.Hour)

	tok, err := i.Issue(Claims{UserID: "only-id"})
	require.NoError(t, err)

	c, err := i.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "only-id", c.UserID)
	assert.Empty(t, c.UserName)
}

func TestIssuer_EmptySubject(t *testing.T) {
	i, _ := newTestIssuer(t, "k", time.Hour)

	_, err := i.Issue(Claims{})
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_Expiry(t *testing.T) {
	i, clock := newTestIssuer(t, "k", time.Hour)

	tok, err := i.Issue(Claims{UserID: "u"})
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Minute)
	_, err = i.Verify(tok)
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = i.Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.NotErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_TamperedTokenIsInvalid(t *testing.T) {
	i, _ := newTestIssuer(t, "k", time.Hour)

	tok, err := i.Issue(Claims{UserID: "u", UserName: "ann"})
	require.NoError(t, err)

	for pos := 0; pos < len(tok); pos++ {
		if tok[pos] == '.' {
			continue
		}
		b := []byte(tok)
		if b[pos] == 'A' {
			b[pos] = 'B'
		} else {
			b[pos] = 'A'
		}

		_, err := i.Verify(string(b))
		require.ErrorIs(t, err, common.ErrInvalidToken, "flip at %d", pos)
	}
}

func TestIssuer_TamperedExpiredTokenIsInvalid(t *testing.T) {
	i, clock := newTestIssuer(t, "k", time.Hour)

	tok, err := i.Issue(Claims{UserID: "u"})
	require.NoError(t, err)
	clock.t = clock.t.Add(2 * time.Hour)

	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))

	_, err = i.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	a, _ := newTestIssuer(t, "right", time.Hour)
	b, _ := newTestIssuer(t, "wrong", time.Hour)

	tok, err := a.Issue(Claims{UserID: "u"})
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_RejectsOtherAlgorithms(t *testing.T) {
	i, clock := newTestIssuer(t, "k", time.Hour)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.Verify(none)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = i.Verify(hs512)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_MissingExpiryOrSubject(t *testing.T) {
	i, clock := newTestIssuer(t, "k", time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u"}).
		SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = i.Verify(noExp)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = i.Verify(noSub)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssuer_Garbage(t *testing.T) {
	i, _ := newTestIssuer(t, "k", time.Hour)

	for _, tok := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		_, err := i.Verify(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u"})
	c, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", c.UserID)

	_, ok = ClaimsFromContext(WithClaims(context.Background(), nil))
	assert.False(t, ok)
}
