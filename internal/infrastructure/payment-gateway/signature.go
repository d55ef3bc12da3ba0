package paymentgateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

type Verifier struct {
	secret []byte
}

// VerifiedCallback is produced once per request and never persisted.
type VerifiedCallback struct {
	Params         CallbackParameters
	SignatureValid bool
	Canonical      string
}

func NewVerifier(hashSecret string) *Verifier {
	return &Verifier{secret: []byte(hashSecret)}
}

// Sign returns the lowercase hex HMAC-SHA512 of the canonical encoding of params.
func (v *Verifier) Sign(params map[string]string) string {
	return hex.EncodeToString(v.digest(Canonicalize(params, signatureFields...)))
}

// Verify recomputes the signature over every field except the signature fields.
// A mismatch is reported through SignatureValid; only a missing or non-hex
// signature is an error.
func (v *Verifier) Verify(params CallbackParameters) (VerifiedCallback, error) {
	result := VerifiedCallback{Params: params}

	supplied := params.SecureHash
	if supplied == "" {
		supplied = params.Raw[FieldSecureHash]
	}
	if supplied == "" {
		return result, ErrMissingSignature
	}

	suppliedDigest, err := hex.DecodeString(supplied)
	if err != nil {
		return result, ErrMalformedSignature
	}

	result.Canonical = Canonicalize(params.Raw, signatureFields...)
	result.SignatureValid = hmac.Equal(v.digest(result.Canonical), suppliedDigest)

	return result, nil
}

func (v *Verifier) digest(canonical string) []byte {
	mac := hmac.New(sha512.New, v.secret)
	_, _ = mac.Write([]byte(canonical))
	return mac.Sum(nil)
}
