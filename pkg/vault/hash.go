package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// HashEncoding returns the one-way lookup digest of a biometric feature
// vector. The digest is usable only as a search key; the vector cannot be
// reconstructed from it.
func HashEncoding(vector []float64) string {
	parts := make([]string, len(vector))
	for i, f := range vector {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// HashTemplate returns the one-way lookup digest of a raw biometric
// template. Same contract as HashEncoding: a search key, never a
// reconstruction path.
func HashTemplate(template []byte) string {
	sum := sha256.Sum256(template)
	return hex.EncodeToString(sum[:])
}

// Anonymize returns a salted one-way hash of an identifier for log
// scrubbing. The same identifier always yields the same hash, so historic
// audit entries stay joinable, but the identifier cannot be recovered.
func (v *Vault) Anonymize(identifier string) string {
	mac := hmac.New(sha256.New, v.anonSalt)
	mac.Write([]byte(identifier))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign computes an HMAC-SHA256 signature over data. Used by the credential
// codec and anywhere tamper-evidence without confidentiality is enough.
func (v *Vault) Sign(data []byte) []byte {
	mac := hmac.New(sha256.New, v.hmacKey)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifySignature reports whether signature matches data, in constant time.
func (v *Vault) VerifySignature(data, signature []byte) bool {
	return hmac.Equal(v.Sign(data), signature)
}
