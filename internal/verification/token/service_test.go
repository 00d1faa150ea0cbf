package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/sentinel"
)

const testIssuer = "docgate-test"

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := New("signing-key", testIssuer)

	signed, expiresAt, err := svc.Issue("doc-1", "", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", claims.DocID)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueRequiresDocID(t *testing.T) {
	svc := New("signing-key", testIssuer)

	_, _, err := svc.Issue("", "", time.Minute)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestIssueZeroTTLUsesDefault(t *testing.T) {
	svc := New("signing-key", testIssuer, WithDefaultTTL(time.Hour))

	_, expiresAt, err := svc.Issue("doc-1", "", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestIssueRejectsTTLAboveMaximum(t *testing.T) {
	svc := New("signing-key", testIssuer, WithMaxTTL(time.Hour))

	_, _, err := svc.Issue("doc-1", "", 2*time.Hour)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	// At or below the cap is fine.
	_, _, err = svc.Issue("doc-1", "", time.Hour)
	assert.NoError(t, err)
}

func TestIssueWithExplicitIssuer(t *testing.T) {
	svc := New("signing-key", testIssuer)

	signed, _, err := svc.Issue("doc-1", "partner-ehr", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "partner-ehr", claims.Issuer)
}

func TestVerifyWrongKey(t *testing.T) {
	minter := New("key-a", testIssuer)
	verifier := New("key-b", testIssuer)

	signed, _, err := minter.Issue("doc-1", "", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := New("signing-key", testIssuer)

	signed, _, err := svc.Issue("doc-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestVerifyTamperedTokenIsInvalidNotExpired(t *testing.T) {
	svc := New("signing-key", testIssuer)

	// Expired AND signed with the wrong key: the signature verdict wins, the
	// expiry of a forged payload means nothing.
	forged, _, err := New("other-key", testIssuer).Issue("doc-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(forged)
	assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid)
}

func TestVerifyGarbageToken(t *testing.T) {
	svc := New("signing-key", testIssuer)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid, "token %q", tok)
	}
}

func TestVerifyRejectsNonHMACAlgorithm(t *testing.T) {
	svc := New("signing-key", testIssuer)

	// alg=none with the library's dedicated unsafe key.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		DocID: "doc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid)
}

func TestVerifyRejectsMissingDocID(t *testing.T) {
	key := []byte("signing-key")
	svc := New(string(key), testIssuer)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		Issuer:    testIssuer,
	}).SignedString(key)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, sentinel.ErrSignatureInvalid)
}

func TestClaimsBindDocID(t *testing.T) {
	svc := New("signing-key", testIssuer)

	forX, _, err := svc.Issue("doc-x", "", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Verify(forX)
	require.NoError(t, err)
	// The binding the gateway enforces: claims carry the minted doc, nothing
	// about any other document.
	assert.Equal(t, "doc-x", claims.DocID)
	assert.NotEqual(t, "doc-y", claims.DocID)
}
