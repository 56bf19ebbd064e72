// Package simulator is a stand-in verification provider producing
// realistic-looking document fields and tunable scores. It backs the test
// suites and the --simulated-provider development wiring; production
// deployments plug a real vision service into gateway.Provider instead.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/veripass/veripass/pkg/gateway"
)

var firstNames = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Radia", "Leslie"}
var lastNames = []string{"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Knuth", "Perlman", "Lamport"}
var nationalities = []string{"FRA", "GBR", "DEU", "ESP", "PRT", "ITA", "NLD", "BEL"}
var documentTypes = []string{"passport", "national_id"}

// Provider simulates the external OCR / face-match / liveness capability.
// Zero value behaves like a healthy provider with passing scores; tests
// override the score fields to exercise failure paths.
type Provider struct {
	mu   sync.Mutex
	rand *rand.Rand

	// Fixed scores; when nil, scores are drawn from realistic ranges.
	DocumentConfidence *float64
	Similarity         *float64
	LivenessScore      *float64

	// Err, when set, is returned by every call. Delay is applied before
	// answering so timeout handling can be exercised.
	Err   error
	Delay time.Duration
}

var _ gateway.Provider = (*Provider)(nil)

// New creates a simulator seeded for reproducible output.
func New(seed int64) *Provider {
	return &Provider{rand: rand.New(rand.NewSource(seed))}
}

// Fixed returns a pointer to score, for the score override fields.
func Fixed(score float64) *float64 { return &score }

func (p *Provider) wait(ctx context.Context) error {
	if p.Err != nil {
		return p.Err
	}
	if p.Delay == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) score(fixed *float64, min, max float64) float64 {
	if fixed != nil {
		return *fixed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rand.Float64()*(max-min)
}

func (p *Provider) pick(values []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return values[p.rand.Intn(len(values))]
}

// ExtractDocumentFields fabricates a coherent identity document readout.
func (p *Provider) ExtractDocumentFields(ctx context.Context, document gateway.Image) (*gateway.DocumentResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	docNumber := fmt.Sprintf("%c%c%07d",
		'A'+p.rand.Intn(26), 'A'+p.rand.Intn(26), p.rand.Intn(10000000))
	birthYear := 1950 + p.rand.Intn(55)
	birthMonth := 1 + p.rand.Intn(12)
	birthDay := 1 + p.rand.Intn(28)
	p.mu.Unlock()

	confidence := p.score(p.DocumentConfidence, 88, 99)
	fields := map[string]string{
		"first_name":      p.pick(firstNames),
		"last_name":       p.pick(lastNames),
		"date_of_birth":   fmt.Sprintf("%04d-%02d-%02d", birthYear, birthMonth, birthDay),
		"document_number": docNumber,
		"nationality":     p.pick(nationalities),
		"document_type":   p.pick(documentTypes),
	}

	perField := make(map[string]float64, len(fields))
	for name := range fields {
		perField[name] = confidence
	}
	return &gateway.DocumentResult{Fields: fields, FieldConfidence: perField}, nil
}

// CompareFaces answers with the configured or a realistic similarity.
func (p *Provider) CompareFaces(ctx context.Context, selfie, idPhoto gateway.Image) (*gateway.FaceMatchResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return &gateway.FaceMatchResult{
		SimilarityScore:      p.score(p.Similarity, 86, 99),
		SourceFaceConfidence: p.score(nil, 90, 99),
	}, nil
}

// CheckLiveness answers with the configured or a realistic confidence.
func (p *Provider) CheckLiveness(ctx context.Context, frames []gateway.Image) (*gateway.LivenessResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	score := p.score(p.LivenessScore, 85, 99)
	return &gateway.LivenessResult{
		ConfidenceScore: score,
		LiveDetected:    score >= 50,
	}, nil
}
