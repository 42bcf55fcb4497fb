package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"programhub/pkg/domain"
)

var issuedAt = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newVerifier(t *testing.T, opts ...Option) *Verifier {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return issuedAt })}, opts...)
	v, err := NewVerifier("s3cret", opts...)
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newVerifier(t, WithIssuer("programhub"))
	token, err := v.Issue(domain.Principal{ID: "u1", Role: domain.RoleManager}, time.Hour)
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: "u1", Role: domain.RoleManager}, p)
}

func TestVerifyRejections(t *testing.T) {
	v := newVerifier(t)
	other, err := NewVerifier("different", WithClock(func() time.Time { return issuedAt }))
	require.NoError(t, err)

	foreign, _ := other.Issue(domain.Principal{ID: "u1", Role: domain.RoleAdmin}, time.Hour)
	expired, _ := v.Issue(domain.Principal{ID: "u1", Role: domain.RoleAdmin}, -time.Minute)
	noSubject, _ := v.Issue(domain.Principal{Role: domain.RoleAdmin}, time.Hour)
	badRole, _ := v.Issue(domain.Principal{ID: "u1", Role: "root"}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": issuedAt.Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"foreign": foreign, "expired": expired, "no subject": noSubject,
		"bad role": badRole, "alg none": none, "garbage": "abc.def",
	} {
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated, name)
	}

	scoped := newVerifier(t, WithIssuer("programhub"))
	_, err = scoped.Verify(expired)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestLeewayAcceptsRecentExpiry(t *testing.T) {
	v := newVerifier(t, WithLeeway(2*time.Minute))
	token, err := v.Issue(domain.Principal{ID: "u1", Role: domain.RoleMember}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.NoError(t, err)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("  ")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t)
	var seen domain.Principal
	var found bool
	handler := Middleware(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, found = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := v.Issue(domain.Principal{ID: "u9", Role: domain.RoleMember}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, found)
	assert.Equal(t, "u9", seen.ID)

	found = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, found)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "basic abc")
	_, ok := BearerToken(req)
	assert.False(t, ok)
	req.Header.Set("Authorization", "bearer   tok ")
	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}
