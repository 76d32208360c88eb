package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier recomputes the provider signature with the server-held key secret.
// It is the only authority on whether a payment is genuine.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns hex(HMAC_SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) Verify(orderID, paymentID, signature string) Outcome {
	if orderID == "" || paymentID == "" || signature == "" {
		return MissingFields
	}
	expected := Sign(string(v.secret), orderID, paymentID)
	// constant-time; result is identical to exact string equality
	if hmac.Equal([]byte(expected), []byte(signature)) {
		return Verified
	}
	return SignatureMismatch
}
