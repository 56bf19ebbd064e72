package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veripass/veripass/pkg/faults"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/gateway/simulator"
	"github.com/veripass/veripass/pkg/metrics"
)

var frame = gateway.Image("frame-bytes")

func frames(n int) []gateway.Image {
	out := make([]gateway.Image, n)
	for i := range out {
		out[i] = frame
	}
	return out
}

func TestExtractDocumentFields(t *testing.T) {
	g := gateway.New(simulator.New(1), time.Second, 0)

	result, err := g.ExtractDocumentFields(context.Background(), frame)
	require.NoError(t, err)

	for _, field := range []string{"first_name", "last_name", "date_of_birth", "document_number", "nationality", "document_type"} {
		assert.NotEmpty(t, result.Fields[field], "missing %s", field)
		assert.Greater(t, result.FieldConfidence[field], 0.0)
		assert.LessOrEqual(t, result.FieldConfidence[field], 100.0)
	}
	assert.Greater(t, result.MinConfidence(), 0.0)
}

func TestExtractDocumentFieldsEmptyImage(t *testing.T) {
	g := gateway.New(simulator.New(1), time.Second, 0)

	_, err := g.ExtractDocumentFields(context.Background(), nil)
	assert.Equal(t, faults.InputInvalid, faults.KindOf(err))
}

func TestCompareFacesLowConfidenceIsNotAnError(t *testing.T) {
	sim := simulator.New(1)
	sim.Similarity = simulator.Fixed(12)
	g := gateway.New(sim, time.Second, 0)

	result, err := g.CompareFaces(context.Background(), frame, frame)
	require.NoError(t, err, "low confidence is a normal result, not an exception")
	assert.Equal(t, 12.0, result.SimilarityScore)
	assert.False(t, result.IsMatch(gateway.FaceMatchThreshold))
}

func TestCompareFacesThresholdBoundary(t *testing.T) {
	// The boundary is strict: exactly 85 is not a match.
	exactly := &gateway.FaceMatchResult{SimilarityScore: gateway.FaceMatchThreshold}
	assert.False(t, exactly.IsMatch(gateway.FaceMatchThreshold))

	above := &gateway.FaceMatchResult{SimilarityScore: gateway.FaceMatchThreshold + 0.1}
	assert.True(t, above.IsMatch(gateway.FaceMatchThreshold))
}

func TestCheckLivenessMinFrames(t *testing.T) {
	sim := simulator.New(1)
	sim.Err = errors.New("provider should not be reached")
	g := gateway.New(sim, time.Second, 0)

	_, err := g.CheckLiveness(context.Background(), frames(gateway.MinLivenessFrames-1))
	assert.Equal(t, faults.InputInvalid, faults.KindOf(err),
		"short frame sequences must fail before the provider is invoked")
}

func TestCheckLiveness(t *testing.T) {
	g := gateway.New(simulator.New(1), time.Second, 0)

	result, err := g.CheckLiveness(context.Background(), frames(gateway.MinLivenessFrames))
	require.NoError(t, err)
	assert.True(t, result.LiveDetected)
	assert.Greater(t, result.ConfidenceScore, 0.0)
}

func TestProviderTimeout(t *testing.T) {
	sim := simulator.New(1)
	sim.Delay = 200 * time.Millisecond
	g := gateway.New(sim, 10*time.Millisecond, 0)

	_, err := g.CompareFaces(context.Background(), frame, frame)
	assert.Equal(t, faults.ProviderTimeout, faults.KindOf(err))
	assert.True(t, faults.Retryable(err))
}

func TestProviderUnavailable(t *testing.T) {
	sim := simulator.New(1)
	sim.Err = errors.New("connection refused")
	g := gateway.New(sim, time.Second, 0)

	_, err := g.CompareFaces(context.Background(), frame, frame)
	assert.Equal(t, faults.ProviderUnavailable, faults.KindOf(err))
}

func TestProviderLatencyObserved(t *testing.T) {
	m := metrics.New()
	g := gateway.New(simulator.New(1), time.Second, 0).WithMetrics(m)

	_, err := g.ExtractDocumentFields(context.Background(), frame)
	require.NoError(t, err)
	_, err = g.CompareFaces(context.Background(), frame, frame)
	require.NoError(t, err)
	_, err = g.CheckLiveness(context.Background(), frames(gateway.MinLivenessFrames))
	require.NoError(t, err)

	assert.Equal(t, 3, testutil.CollectAndCount(m.ProviderLatency),
		"each provider operation gets its own latency series")

	// Failed calls are observed too; the histogram is where slow-provider
	// trouble shows up first.
	sim := simulator.New(1)
	sim.Err = errors.New("connection refused")
	broken := gateway.New(sim, time.Second, 0).WithMetrics(m)
	_, err = broken.CompareFaces(context.Background(), frame, frame)
	require.Error(t, err)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(m.ProviderLatency), 3)
}

// flakyProvider fails a fixed number of times before answering.
type flakyProvider struct {
	gateway.Provider
	failures int
	calls    int
}

func (f *flakyProvider) CompareFaces(ctx context.Context, selfie, idPhoto gateway.Image) (*gateway.FaceMatchResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, context.DeadlineExceeded
	}
	return &gateway.FaceMatchResult{SimilarityScore: 93}, nil
}

func TestCompareFacesWithRetry(t *testing.T) {
	flaky := &flakyProvider{Provider: simulator.New(1), failures: 2}
	g := gateway.New(flaky, time.Second, 2)

	result, err := g.CompareFacesWithRetry(context.Background(), frame, frame)
	require.NoError(t, err)
	assert.Equal(t, 93.0, result.SimilarityScore)
	assert.Equal(t, 3, flaky.calls)
}

func TestCompareFacesWithRetryExhausted(t *testing.T) {
	flaky := &flakyProvider{Provider: simulator.New(1), failures: 10}
	g := gateway.New(flaky, time.Second, 2)

	_, err := g.CompareFacesWithRetry(context.Background(), frame, frame)
	assert.Equal(t, faults.ProviderTimeout, faults.KindOf(err))
	assert.Equal(t, 3, flaky.calls, "retries are bounded")
}
