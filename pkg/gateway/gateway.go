// Package gateway normalizes the external OCR / face-match / liveness
// capability behind one interface. Provider responses of any shape are
// converted to the fixed result types here, once, at this boundary; the
// pipeline never sees raw vendor payloads.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/veripass/veripass/pkg/faults"
	"github.com/veripass/veripass/pkg/metrics"
)

// FaceMatchThreshold is the accept boundary for face comparison: a match
// requires similarity strictly above it. This is the single most
// security-relevant tunable in the system, so it lives here as a named
// constant and nowhere else as a literal.
const FaceMatchThreshold = 85.0

// MinLivenessFrames is the minimum frame-sequence length accepted for a
// liveness check. Shorter sequences are rejected before the provider is
// ever invoked.
const MinLivenessFrames = 3

// Image is raw image bytes as captured by a kiosk or gate camera.
type Image []byte

// DocumentResult is the normalized outcome of document field extraction.
// Low confidence is a normal result, not an error.
type DocumentResult struct {
	Fields          map[string]string
	FieldConfidence map[string]float64
}

// MinConfidence returns the lowest per-field confidence, or zero when no
// fields were extracted.
func (r *DocumentResult) MinConfidence() float64 {
	if len(r.FieldConfidence) == 0 {
		return 0
	}
	min := 100.0
	for _, c := range r.FieldConfidence {
		if c < min {
			min = c
		}
	}
	return min
}

// FaceMatchResult is the normalized outcome of a face comparison. Scores
// are 0-100.
type FaceMatchResult struct {
	SimilarityScore      float64
	SourceFaceConfidence float64
}

// IsMatch reports whether the similarity clears the accept boundary.
func (r *FaceMatchResult) IsMatch(threshold float64) bool {
	return r.SimilarityScore > threshold
}

// LivenessResult is the normalized outcome of a liveness check. Scores are
// 0-100.
type LivenessResult struct {
	ConfidenceScore float64
	LiveDetected    bool
}

// Provider is the contract any verification backend must satisfy: a real
// vision service in production, the simulator in tests. Implementations
// must return scores in the 0-100 range and must not fail on well-formed
// low-confidence input.
type Provider interface {
	ExtractDocumentFields(ctx context.Context, document Image) (*DocumentResult, error)
	CompareFaces(ctx context.Context, selfie, idPhoto Image) (*FaceMatchResult, error)
	CheckLiveness(ctx context.Context, frames []Image) (*LivenessResult, error)
}

// Gateway wraps a provider with timeout bounding and fault translation.
// Provider calls are potentially slow and always untrusted.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	retries  int
	metrics  *metrics.Metrics
}

// New wraps provider. Every call is bounded by timeout; retries only
// applies to the WithRetry variants used on idempotent read paths.
func New(provider Provider, timeout time.Duration, retries int) *Gateway {
	if retries < 0 {
		retries = 0
	}
	return &Gateway{provider: provider, timeout: timeout, retries: retries}
}

// WithMetrics records the latency of every provider call. m may be nil.
func (g *Gateway) WithMetrics(m *metrics.Metrics) *Gateway {
	g.metrics = m
	return g
}

// ExtractDocumentFields runs OCR over an identity document. Never retried:
// enrollment capture is one-shot.
func (g *Gateway) ExtractDocumentFields(ctx context.Context, document Image) (*DocumentResult, error) {
	if len(document) == 0 {
		return nil, faults.New(faults.InputInvalid, "document image is empty")
	}

	var result *DocumentResult
	err := g.bounded(ctx, "document extraction", "extract", func(ctx context.Context) error {
		var err error
		result, err = g.provider.ExtractDocumentFields(ctx, document)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompareFaces compares a selfie against an ID photo. Never retried.
func (g *Gateway) CompareFaces(ctx context.Context, selfie, idPhoto Image) (*FaceMatchResult, error) {
	if len(selfie) == 0 || len(idPhoto) == 0 {
		return nil, faults.New(faults.InputInvalid, "face images are required")
	}

	var result *FaceMatchResult
	err := g.bounded(ctx, "face comparison", "compare", func(ctx context.Context) error {
		var err error
		result, err = g.provider.CompareFaces(ctx, selfie, idPhoto)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompareFacesWithRetry is CompareFaces plus a small bounded number of
// retries on provider timeout or outage. Check-in and boarding use this:
// the comparison is an idempotent read, so retrying is safe there, while
// enrollment issuance must never retry a one-shot capture.
func (g *Gateway) CompareFacesWithRetry(ctx context.Context, selfie, idPhoto Image) (*FaceMatchResult, error) {
	var result *FaceMatchResult
	var err error
	for attempt := 0; attempt <= g.retries; attempt++ {
		result, err = g.CompareFaces(ctx, selfie, idPhoto)
		if err == nil || !faults.Retryable(err) {
			return result, err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, err
}

// CheckLiveness verifies the frame sequence comes from a live person. A
// sequence shorter than MinLivenessFrames fails fast without touching the
// provider.
func (g *Gateway) CheckLiveness(ctx context.Context, frames []Image) (*LivenessResult, error) {
	if len(frames) < MinLivenessFrames {
		return nil, faults.Newf(faults.InputInvalid,
			"liveness requires at least %d frames, got %d", MinLivenessFrames, len(frames))
	}

	var result *LivenessResult
	err := g.bounded(ctx, "liveness check", "liveness", func(ctx context.Context) error {
		var err error
		result, err = g.provider.CheckLiveness(ctx, frames)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// bounded runs one provider call under the configured timeout. op names the
// call in fault messages, metric in latency series.
func (g *Gateway) bounded(ctx context.Context, op, metric string, fn func(ctx context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	g.metrics.ObserveProviderLatency(metric, time.Since(start))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return faults.Wrap(err, faults.ProviderTimeout, op+" timed out")
	default:
		return faults.Wrap(err, faults.ProviderUnavailable, op+" failed")
	}
}
