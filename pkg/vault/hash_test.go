package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashEncodingDeterministic(t *testing.T) {
	vector := []float64{0.12, -3.4, 5.0, 0.0001}

	h1 := HashEncoding(vector)
	h2 := HashEncoding([]float64{0.12, -3.4, 5.0, 0.0001})
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex sha256
}

func TestHashEncodingDistinctVectors(t *testing.T) {
	base := []float64{0.1, 0.2, 0.3}

	assert.NotEqual(t, HashEncoding(base), HashEncoding([]float64{0.1, 0.2, 0.30001}))
	assert.NotEqual(t, HashEncoding(base), HashEncoding([]float64{0.1, 0.2}))
	// Element order matters.
	assert.NotEqual(t, HashEncoding(base), HashEncoding([]float64{0.3, 0.2, 0.1}))
}

func TestHashTemplate(t *testing.T) {
	template := []byte("raw-template-bytes")

	h1 := HashTemplate(template)
	h2 := HashTemplate([]byte("raw-template-bytes"))
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashTemplate([]byte("raw-template-byteZ")))
}

func TestAnonymize(t *testing.T) {
	v, err := New(testMasterKey())
	assert.NoError(t, err)

	h1 := v.Anonymize("traveler-123")
	h2 := v.Anonymize("traveler-123")
	assert.Equal(t, h1, h2, "same identifier must stay joinable across log entries")
	assert.NotEqual(t, h1, v.Anonymize("traveler-124"))
	assert.NotContains(t, h1, "traveler")

	// A different master key produces unrelated hashes.
	other := testMasterKey()
	other[31] ^= 0x01
	v2, _ := New(other)
	assert.NotEqual(t, h1, v2.Anonymize("traveler-123"))
}

func TestSignVerify(t *testing.T) {
	v, _ := New(testMasterKey())

	data := []byte(`{"type":"BOARDING_PASS"}`)
	sig := v.Sign(data)

	assert.True(t, v.VerifySignature(data, sig))
	assert.False(t, v.VerifySignature([]byte(`{"type":"ENROLLMENT"}`), sig))

	tampered := append([]byte{}, sig...)
	tampered[0] ^= 0x01
	assert.False(t, v.VerifySignature(data, tampered))
}
