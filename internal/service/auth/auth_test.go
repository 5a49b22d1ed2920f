package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xhttp "SmartEnergy/pkg/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutTTLDoesNotExpire(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", 0)
	tok, err := issuer.Issue("user-2")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, h.Compare(hash, "hunter22"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "hunter22"))

	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
}

func serve(mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	e.HTTPErrorHandler = xhttp.HTTPErrorHandler
	var seen string
	e.GET("/me", func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusOK)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequiredMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	tok, err := issuer.Issue("user-3")
	require.NoError(t, err)

	rec, _ := serve(Required(issuer), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No token")

	rec, _ = serve(Required(issuer), "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")

	rec, seen := serve(Required(issuer), "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-3", seen)
}

func TestOptionalMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	tok, err := issuer.Issue("user-4")
	require.NoError(t, err)

	rec, seen := serve(Optional(issuer), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, seen)

	rec, seen = serve(Optional(issuer), "Bearer nope")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, seen)

	_, seen = serve(Optional(issuer), "Bearer "+tok)
	assert.Equal(t, "user-4", seen)
}
