package signer

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 8, 3, 12, 0, 0, 0, time.UTC)

func TestSign_SetsExpires(t *testing.T) {
	s := New("secret")

	signed, err := s.Sign("http://localhost:8080/media/originals/u/i/original.png", 600, t0)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(t0.Unix()+600, 10), u.Query().Get(ExpiresParam))
	assert.NotEmpty(t, u.Query().Get(SignatureParam))
}

func TestSign_PreservesComponents(t *testing.T) {
	s := New("secret")
	raw := "https://img.example.com:8443/media/a%20b/original.png?size=large&lang=en#top"

	signed, err := s.Sign(raw, 30, t0)
	require.NoError(t, err)

	orig, _ := url.Parse(raw)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, orig.Scheme, u.Scheme)
	assert.Equal(t, orig.Host, u.Host)
	assert.Equal(t, orig.EscapedPath(), u.EscapedPath())
	assert.Equal(t, orig.Fragment, u.Fragment)
	assert.Equal(t, "large", u.Query().Get("size"))
	assert.Equal(t, "en", u.Query().Get("lang"))
}

func TestSign_CollapsesExistingExpires(t *testing.T) {
	s := New("secret")

	signed, err := s.Sign("http://h/p?expires=1&expires=2&x=y", 10, t0)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, []string{strconv.FormatInt(t0.Unix()+10, 10)}, u.Query()[ExpiresParam])
	assert.Equal(t, "y", u.Query().Get("x"))
}

func TestSign_NoQueryHasSingleSeparator(t *testing.T) {
	s := New("secret")

	signed, err := s.Sign("http://h/media/x.png", 10, t0)
	require.NoError(t, err)
	assert.NotContains(t, signed, "??")
	assert.NotContains(t, signed, "?&")

	signed, err = s.Sign("http://h/media/x.png?", 10, t0)
	require.NoError(t, err)
	assert.NotContains(t, signed, "??")
}

func TestSign_Deterministic(t *testing.T) {
	s := New("secret")

	a, err := s.Sign("http://h/media/x.png", 600, t0)
	require.NoError(t, err)
	b, err := s.Sign("http://h/media/x.png", 600, t0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSign_RejectsNonPositiveTTL(t *testing.T) {
	s := New("secret")

	_, err := s.Sign("http://h/x", 0, t0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	_, err = s.Sign("http://h/x", -5, t0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestSign_InvalidURL(t *testing.T) {
	_, err := New("secret").Sign("http://[::1", 10, t0)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	s := New("secret")
	signed, err := s.Sign("http://h/media/originals/x.png", 600, t0)
	require.NoError(t, err)
	u, _ := url.Parse(signed)

	assert.NoError(t, s.Verify(u.EscapedPath(), u.Query(), t0))
	assert.NoError(t, s.Verify(u.EscapedPath(), u.Query(), t0.Add(600*time.Second)))
	assert.ErrorIs(t, s.Verify(u.EscapedPath(), u.Query(), t0.Add(601*time.Second)), ErrLinkExpired)
}

func TestVerify_Tampered(t *testing.T) {
	s := New("secret")
	signed, err := s.Sign("http://h/media/originals/x.png", 600, t0)
	require.NoError(t, err)
	u, _ := url.Parse(signed)

	// Extending the expiry invalidates the signature.
	q := u.Query()
	q.Set(ExpiresParam, strconv.FormatInt(t0.Unix()+99999, 10))
	assert.ErrorIs(t, s.Verify(u.EscapedPath(), q, t0), ErrBadSignature)

	// Reusing the signature for another object fails.
	assert.ErrorIs(t, s.Verify("/media/originals/y.png", u.Query(), t0), ErrBadSignature)

	// A different secret fails.
	assert.ErrorIs(t, New("other").Verify(u.EscapedPath(), u.Query(), t0), ErrBadSignature)

	// Missing or malformed parameters fail.
	assert.ErrorIs(t, s.Verify(u.EscapedPath(), url.Values{}, t0), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(u.EscapedPath(), url.Values{ExpiresParam: {"soon"}, SignatureParam: {"zz"}}, t0), ErrBadSignature)
}

func TestSigned(t *testing.T) {
	assert.False(t, Signed(url.Values{}))
	assert.True(t, Signed(url.Values{ExpiresParam: {"1"}}))
	assert.True(t, Signed(url.Values{SignatureParam: {"ab"}}))
}
