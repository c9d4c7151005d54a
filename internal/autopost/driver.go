package autopost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/metrics"
)

// ErrGenerationExhausted is returned when the first provider and its
// fallback both ran out of attempts.
var ErrGenerationExhausted = errors.New("generation exhausted")

// GeneratorFactory builds the adapter for a provider.
type GeneratorFactory func(ctx context.Context, d ai.Descriptor) (ai.Generator, error)

// state is a step of the generation state machine.
type state int

const (
	stateSelecting state = iota
	stateGenerating
	stateValidating
	stateSucceeded
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateSelecting:
		return "selecting"
	case stateGenerating:
		return "generating"
	case stateValidating:
		return "validating"
	case stateSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// DriverConfig holds the retry policy.
type DriverConfig struct {
	MaxAttempts int
	Backoff     time.Duration
	Rules       ai.Rules
}

// Driver runs providers until a draft passes validation. A provider gets
// MaxAttempts tries; after that one other provider is drawn and gets its
// own MaxAttempts. The wait before retry n is Backoff*n and blocks.
type Driver struct {
	registry ai.Registry
	cfg      DriverConfig
	factory  GeneratorFactory
	rnd      *rand.Rand
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewDriver creates a Driver over registry. Zero values in cfg fall back to
// 3 attempts, one second of backoff and ai.DefaultRules.
func NewDriver(registry ai.Registry, cfg DriverConfig) *Driver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Rules == (ai.Rules{}) {
		cfg.Rules = ai.DefaultRules
	}
	return &Driver{
		registry: registry,
		cfg:      cfg,
		factory:  ai.NewGenerator,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Generation is a draft that passed validation.
type Generation struct {
	Draft    *ai.Draft
	Kind     ai.ParseKind
	Provider string
	Attempts int
}

// run holds the mutable state of one Generate call.
type run struct {
	topic     string
	headlines []string

	tried   []string
	current ai.Descriptor
	gen     ai.Generator
	attempt int
	total   int
	raw     string
	result  ai.ParseResult
	lastErr error
}

// Generate produces a validated draft about topic. It returns
// ai.ErrNoProviderConfigured when no provider is enabled and
// ErrGenerationExhausted when every allowed attempt failed.
func (d *Driver) Generate(ctx context.Context, topic string, headlines []string) (*Generation, error) {
	r := &run{topic: topic, headlines: headlines}
	st := stateSelecting

	for {
		switch st {
		case stateSelecting:
			st = d.selectProvider(ctx, r)
			if st == stateFailed && len(r.tried) == 0 {
				return nil, r.lastErr
			}

		case stateGenerating:
			r.attempt++
			r.total++
			prompt := ai.PromptFor(r.current, r.topic, r.headlines, d.now())
			raw, err := r.gen.Generate(ctx, prompt)
			if err != nil {
				slog.Warn("provider call failed",
					"provider", r.current.Name, "attempt", r.attempt, "error", err)
				metrics.ObserveAttempt(r.current.Name, metrics.ResultProviderErr)
				r.lastErr = err
				st = d.afterFailure(r)
				continue
			}
			r.raw = raw
			st = stateValidating

		case stateValidating:
			r.result = ai.Parse(r.raw, r.topic, r.current.FreeText, d.cfg.Rules)
			if r.result.Err == nil {
				metrics.ObserveAttempt(r.current.Name, metrics.ResultSuccess)
				st = stateSucceeded
				continue
			}
			result := metrics.ResultRejected
			if errors.Is(r.result.Err, ai.ErrWordCountLow) {
				result = metrics.ResultRetry
			}
			slog.Warn("draft rejected",
				"provider", r.current.Name, "attempt", r.attempt,
				"kind", r.result.Kind, "error", r.result.Err)
			metrics.ObserveAttempt(r.current.Name, result)
			r.lastErr = r.result.Err
			st = d.afterFailure(r)

		case stateSucceeded:
			draft := r.result.Draft
			draft.Provider = r.current.Name
			return &Generation{
				Draft:    draft,
				Kind:     r.result.Kind,
				Provider: r.current.Name,
				Attempts: r.total,
			}, nil

		case stateFailed:
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrGenerationExhausted, r.total, r.lastErr)
		}
	}
}

// selectProvider draws a provider not tried yet and builds its adapter.
func (d *Driver) selectProvider(ctx context.Context, r *run) state {
	if len(r.tried) > 1 {
		return stateFailed
	}
	desc, err := ai.Select(d.registry, d.rnd, r.tried...)
	if err != nil {
		if len(r.tried) == 0 {
			r.lastErr = err
		}
		return stateFailed
	}
	r.tried = append(r.tried, desc.Name)

	gen, err := d.factory(ctx, desc)
	if err != nil {
		slog.Warn("creating provider failed", "provider", desc.Name, "error", err)
		r.lastErr = err
		return d.selectProvider(ctx, r)
	}

	slog.Info("provider selected", "provider", desc.Name, "model", desc.Model, "fallback", len(r.tried) > 1)
	r.current = desc
	r.gen = gen
	r.attempt = 0
	return stateGenerating
}

// afterFailure decides between another try on the same provider, the
// fallback rotation and giving up.
func (d *Driver) afterFailure(r *run) state {
	if r.attempt < d.cfg.MaxAttempts {
		d.sleep(d.cfg.Backoff * time.Duration(r.attempt))
		return stateGenerating
	}
	if len(r.tried) < 2 {
		slog.Warn("provider exhausted, falling back", "provider", r.current.Name, "attempts", r.attempt)
		return stateSelecting
	}
	return stateFailed
}
