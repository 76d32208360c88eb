package payment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify_RoundTrip(t *testing.T) {
	secrets := []string{"s3cr3t", "", "κλειδί", strings.Repeat("x", 128)}
	ids := [][2]string{{"ord_1", "pay_1"}, {"order_MzXyZ", "pay_AbC"}, {"a|b", "c"}}

	for _, secret := range secrets {
		v := NewVerifier(secret)
		for _, id := range ids {
			t.Run(fmt.Sprintf("%s/%s", id[0], id[1]), func(t *testing.T) {
				sig := Sign(secret, id[0], id[1])
				assert.Equal(t, Verified, v.Verify(id[0], id[1], sig))
				assert.Equal(t, SignatureMismatch, v.Verify(id[0], id[1], sig+"0"))
				assert.Equal(t, SignatureMismatch, v.Verify(id[0], id[1], strings.ToUpper(sig)))
				assert.Equal(t, SignatureMismatch, v.Verify(id[0], id[1], "deadbeef"))
			})
		}
	}
}

func TestVerify_SignatureBoundToIDs(t *testing.T) {
	v := NewVerifier("secret")
	sig := Sign("secret", "ord_1", "pay_1")
	assert.Equal(t, SignatureMismatch, v.Verify("ord_2", "pay_1", sig))
	assert.Equal(t, SignatureMismatch, v.Verify("ord_1", "pay_2", sig))
	assert.Equal(t, SignatureMismatch, NewVerifier("other").Verify("ord_1", "pay_1", sig))
}

func TestVerify_MissingFields(t *testing.T) {
	v := NewVerifier("secret")
	assert.Equal(t, MissingFields, v.Verify("", "pay_1", "sig"))
	assert.Equal(t, MissingFields, v.Verify("ord_1", "", "sig"))
	assert.Equal(t, MissingFields, v.Verify("ord_1", "pay_1", ""))
}

func TestSign_KnownVector(t *testing.T) {
	// echo -n "ord_1|pay_1" | openssl dgst -sha256 -hmac secret
	assert.Equal(t, "58f7f5f1988c03d71467c8eb8b8d8c142ff19eacd044c8681da617fb87a7614c", Sign("secret", "ord_1", "pay_1"))
}
