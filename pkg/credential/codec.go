// Package credential builds, signs, and verifies the compact tokens carried
// as QR payloads through enrollment, check-in, and boarding. Tokens are
// signed, not encrypted: their content is displayed on screen and printed,
// so confidentiality is the vault's job, tamper-evidence is ours.
package credential

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Verification failure reasons, reported together so audit logs get the
// full diagnostic picture instead of the first failure found.
const (
	ReasonBadSignature  = "signature_invalid"
	ReasonExpired       = "expired"
	ReasonBadStatus     = "status_invalid"
	ReasonUnknownStatus = "status_unknown"
)

// ErrMalformedToken is returned when a token cannot be parsed at all.
// Malformed input fails closed; there is no partial verification result.
var ErrMalformedToken = errors.New("malformed credential token")

const signatureField = "signature"

// Signer is the HMAC capability the codec borrows from the vault. Keys are
// injected at construction so tests can run with distinct keys.
type Signer interface {
	Sign(data []byte) []byte
	VerifySignature(data, signature []byte) bool
}

// Codec issues and verifies credential tokens with one shared signing
// secret.
type Codec struct {
	signer Signer
	now    func() time.Time
}

// NewCodec creates a codec around the given signer.
func NewCodec(signer Signer) *Codec {
	return &Codec{signer: signer, now: time.Now}
}

// WithClock overrides the codec's clock. Tests only.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Verification is the full verdict on a token. Valid is the conjunction of
// the three individual checks.
type Verification struct {
	Valid          bool
	SignatureValid bool
	Expired        bool
	StatusValid    bool
	Reasons        []string
	Payload        *Payload
}

// Issue serializes payload canonically, signs it, and returns the compact
// encoded token. IssuedAt is stamped from the codec clock when unset. Issue
// has no side effects.
func (c *Codec) Issue(payload Payload) (string, error) {
	if !knownKind(payload.Type) {
		return "", fmt.Errorf("unknown credential kind %q", payload.Type)
	}
	if payload.Version == 0 {
		payload.Version = PayloadVersion
	}
	if payload.IssuedAt.IsZero() {
		payload.IssuedAt = c.now().UTC().Truncate(time.Second)
	}

	canonical, fields, err := canonicalize(payload)
	if err != nil {
		return "", err
	}

	signature := c.signer.Sign(canonical)
	fields[signatureField] = json.RawMessage(
		fmt.Sprintf("%q", base64.RawURLEncoding.EncodeToString(signature)))

	wire, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(wire), nil
}

// Verify decodes a token, recomputes the expected signature over the
// canonical serialization with the signature stripped, and compares in
// constant time. It reports every failed check, never just the first one.
// allowedStatuses constrains the embedded status field; an absent status is
// always acceptable.
func (c *Codec) Verify(encoded string, allowedStatuses ...string) (*Verification, error) {
	wire, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedToken
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(wire, &fields); err != nil {
		return nil, ErrMalformedToken
	}

	rawSig, ok := fields[signatureField]
	if !ok {
		return nil, ErrMalformedToken
	}
	var sigB64 string
	if err := json.Unmarshal(rawSig, &sigB64); err != nil {
		return nil, ErrMalformedToken
	}
	signature, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, ErrMalformedToken
	}
	delete(fields, signatureField)

	// Sorted-key marshal of the remaining fields reproduces the exact bytes
	// that were signed.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return nil, ErrMalformedToken
	}

	var payload Payload
	if err := json.Unmarshal(canonical, &payload); err != nil {
		return nil, ErrMalformedToken
	}
	if !knownKind(payload.Type) {
		return nil, ErrMalformedToken
	}

	result := &Verification{
		SignatureValid: c.signer.VerifySignature(canonical, signature),
		StatusValid:    true,
		Payload:        &payload,
	}
	if !result.SignatureValid {
		result.Reasons = append(result.Reasons, ReasonBadSignature)
	}

	if payload.ExpiresAt != nil && payload.ExpiresAt.Before(c.now()) {
		result.Expired = true
		result.Reasons = append(result.Reasons, ReasonExpired)
	}

	if payload.Status != "" && len(allowedStatuses) > 0 {
		result.StatusValid = false
		for _, s := range allowedStatuses {
			if payload.Status == s {
				result.StatusValid = true
				break
			}
		}
		if !result.StatusValid {
			result.Reasons = append(result.Reasons, ReasonBadStatus)
		}
	}

	result.Valid = result.SignatureValid && !result.Expired && result.StatusValid
	return result, nil
}

// DeepLink renders a token as a short URL fragment with a signature prefix
// up front for quick eyeballing at the gate.
func DeepLink(encoded string) (string, error) {
	wire, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedToken
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(wire, &fields); err != nil {
		return "", ErrMalformedToken
	}
	var sigB64 string
	if err := json.Unmarshal(fields[signatureField], &sigB64); err != nil {
		return "", ErrMalformedToken
	}
	signature, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(signature) < 4 {
		return "", ErrMalformedToken
	}

	prefix := hex.EncodeToString(signature[:4])
	return fmt.Sprintf("veripass://credential/%s#%s", prefix, encoded), nil
}

// canonicalize produces the stable-key-order serialization the signature
// covers, plus the field map used to append the signature afterwards.
func canonicalize(payload Payload) ([]byte, map[string]json.RawMessage, error) {
	structBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(structBytes, &fields); err != nil {
		return nil, nil, err
	}

	// encoding/json writes map keys in sorted order, which is the canonical
	// form callers on other platforms must reproduce.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, err
	}
	return canonical, fields, nil
}
