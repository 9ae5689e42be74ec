package gate

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testIssuer = "catequesis-test"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signedToken(t *testing.T, key []byte, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func validClaims(subject uuid.UUID, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestVerifyValidCredential(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	subject := uuid.New()

	got, rej := verifier.Verify(signedToken(t, testKey, validClaims(subject, time.Now())))
	require.Nil(t, rej)
	require.Equal(t, subject, got)
}

func TestVerifyMissingCredential(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)

	_, rej := verifier.Verify("")
	require.NotNil(t, rej)
	require.Equal(t, KindMissingCredential, rej.Kind)
}

func TestVerifyGarbageCredential(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)

	_, rej := verifier.Verify("not.a.token")
	require.NotNil(t, rej)
	require.Equal(t, KindInvalidCredential, rej.Kind)
}

func TestVerifyWrongKey(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	otherKey := []byte("ffffffffffffffffffffffffffffffff")

	_, rej := verifier.Verify(signedToken(t, otherKey, validClaims(uuid.New(), time.Now())))
	require.NotNil(t, rej)
	require.Equal(t, KindInvalidCredential, rej.Kind)
}

func TestVerifyExpiredCredential(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	claims := validClaims(uuid.New(), time.Now().Add(-2*time.Hour))

	// Well-signed but past its expiry: expiry wins the classification.
	_, rej := verifier.Verify(signedToken(t, testKey, claims))
	require.NotNil(t, rej)
	require.Equal(t, KindExpiredCredential, rej.Kind)
}

func TestVerifyWrongIssuer(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	claims := validClaims(uuid.New(), time.Now())
	claims.Issuer = "someone-else"

	_, rej := verifier.Verify(signedToken(t, testKey, claims))
	require.NotNil(t, rej)
	require.Equal(t, KindInvalidCredential, rej.Kind)
}

func TestVerifyNonUUIDSubject(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	claims := validClaims(uuid.New(), time.Now())
	claims.Subject = "user-42"

	_, rej := verifier.Verify(signedToken(t, testKey, claims))
	require.NotNil(t, rej)
	require.Equal(t, KindInvalidCredential, rej.Kind)
}

func TestVerifyMissingExpiry(t *testing.T) {
	verifier := NewVerifier(testKey, testIssuer)
	claims := validClaims(uuid.New(), time.Now())
	claims.ExpiresAt = nil

	_, rej := verifier.Verify(signedToken(t, testKey, claims))
	require.NotNil(t, rej)
	require.Equal(t, KindInvalidCredential, rej.Kind)
}
