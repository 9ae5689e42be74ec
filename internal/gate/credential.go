package gate

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verifier validates bearer credentials and extracts the subject identifier.
// It performs no I/O: given the same key and clock, verification is
// deterministic.
type Verifier struct {
	key    []byte
	issuer string
}

// NewVerifier constructs a Verifier for HS256 credentials from the issuer.
func NewVerifier(key []byte, issuer string) *Verifier {
	return &Verifier{key: key, issuer: issuer}
}

// Verify checks the raw bearer string and returns the embedded subject id.
// An absent credential, a structurally invalid or mis-signed one, and a
// valid-but-expired one each map to their own rejection kind.
func (v *Verifier) Verify(raw string) (uuid.UUID, *Rejection) {
	if raw == "" {
		return uuid.Nil, Reject(KindMissingCredential, "authorization credential required")
	}

	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.key, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		// Expiry is reported even when the signature is otherwise valid.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, Reject(KindExpiredCredential, "credential has expired")
		}
		return uuid.Nil, Reject(KindInvalidCredential, "credential is not valid")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, Reject(KindInvalidCredential, "credential carries no subject")
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, Reject(KindInvalidCredential, "credential subject is malformed")
	}
	return subject, nil
}
