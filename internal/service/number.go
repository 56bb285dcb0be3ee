package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lms/internal/repository"
)

// MaxNumberAttempts bounds how many fresh numbers are tried after unique-constraint collisions.
const MaxNumberAttempts = 5

// Sequence hands out increasing integers per key. Implementations must be safe
// for concurrent use across every process that issues numbers.
type Sequence interface {
	Next(ctx context.Context, key string) (int64, error)
}

// MemorySequence is a process-local Sequence for single-instance deployments and tests.
type MemorySequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequence creates an empty MemorySequence.
func NewMemorySequence() *MemorySequence {
	return &MemorySequence{counters: make(map[string]int64)}
}

func (m *MemorySequence) Next(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

// NumberGenerator issues human-readable document numbers of the form
// PREFIX-YYYYMMDD-NNNNNN.
type NumberGenerator struct {
	seq               Sequence
	invoicePrefix     string
	certificatePrefix string
	loc               *time.Location
	now               Clock
}

// NewNumberGenerator creates a generator. Dates are rendered in loc (UTC when nil).
func NewNumberGenerator(seq Sequence, invoicePrefix, certificatePrefix string, loc *time.Location) *NumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	if invoicePrefix == "" {
		invoicePrefix = "INV"
	}
	if certificatePrefix == "" {
		certificatePrefix = "CERT"
	}
	return &NumberGenerator{
		seq:               seq,
		invoicePrefix:     invoicePrefix,
		certificatePrefix: certificatePrefix,
		loc:               loc,
		now:               systemClock,
	}
}

// SetClock replaces the time source.
func (g *NumberGenerator) SetClock(clock Clock) {
	g.now = clock
}

// GenerateInvoiceNumber returns the next invoice number for today.
func (g *NumberGenerator) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	return g.generate(ctx, g.invoicePrefix)
}

// GenerateCertificateNumber returns the next certificate number for today.
func (g *NumberGenerator) GenerateCertificateNumber(ctx context.Context) (string, error) {
	return g.generate(ctx, g.certificatePrefix)
}

func (g *NumberGenerator) generate(ctx context.Context, prefix string) (string, error) {
	day := g.now().In(g.loc).Format("20060102")
	n, err := g.seq.Next(ctx, prefix+":"+day)
	if err != nil {
		return "", fmt.Errorf("next %s sequence: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, day, n), nil
}

// WithInvoiceNumber calls insert with fresh invoice numbers until it succeeds or
// fails with something other than an invoice number collision. After
// MaxNumberAttempts collisions it returns ErrNumberGenerationCollision.
func (g *NumberGenerator) WithInvoiceNumber(ctx context.Context, insert func(number string) error) (string, error) {
	for attempt := 1; attempt <= MaxNumberAttempts; attempt++ {
		number, err := g.GenerateInvoiceNumber(ctx)
		if err != nil {
			return "", err
		}
		err = insert(number)
		if err == nil {
			return number, nil
		}
		if !repository.IsDuplicateOn(err, repository.ConstraintInvoiceNumber) {
			return "", err
		}
	}
	return "", ErrNumberGenerationCollision
}
