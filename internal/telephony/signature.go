package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
)

// SignatureHeader is set by the provider on every webhook delivery.
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator recomputes the provider's webhook signature:
// base64(HMAC-SHA1(authToken, url + k1v1k2v2...)) with the POST parameter
// keys sorted alphabetically and concatenated as key+value. This is the
// provider's published contract; do not alter it.
type SignatureValidator struct {
	authToken []byte
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{authToken: []byte(authToken)}
}

// Valid reports whether header matches the expected signature for the given
// request URL and form parameters.
func (v *SignatureValidator) Valid(requestURL string, params url.Values, header string) bool {
	if header == "" {
		return false
	}
	expected := v.Compute(requestURL, params)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}

// Compute returns the expected signature for a request. Exposed so tests
// (and outbound webhook simulation) can sign payloads.
func (v *SignatureValidator) Compute(requestURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, v.authToken)
	mac.Write([]byte(requestURL))
	for _, k := range keys {
		// The provider signs each value individually in form order; for the
		// single-value fields it sends this reduces to key+value.
		for _, val := range params[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(val))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
