package autopost

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aifeed/aifeed/internal/metrics"
	"github.com/aifeed/aifeed/internal/models"
)

// HeadlineSource supplies recent headlines used as prompt context.
type HeadlineSource interface {
	Headlines(ctx context.Context, topic string) ([]string, error)
}

// Outcome describes one finished run. Duplicate runs carry no Post.
type Outcome struct {
	Topic      string
	Duplicate  bool
	Post       *models.Post
	Provider   string
	Attempts   int
	Elapsed    time.Duration
	FinishedAt time.Time
}

// Service runs the whole pipeline: topic, headlines, generation, duplicate
// check and publish.
type Service struct {
	driver    *Driver
	guard     *Guard
	publisher *Publisher
	headlines HeadlineSource
	loc       *time.Location
	rnd       *rand.Rand
	now       func() time.Time
}

// NewService wires the pipeline. headlines may be nil. Topic buckets use the
// hour in loc; a nil loc means UTC.
func NewService(driver *Driver, guard *Guard, publisher *Publisher, headlines HeadlineSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		driver:    driver,
		guard:     guard,
		publisher: publisher,
		headlines: headlines,
		loc:       loc,
		now:       time.Now,
	}
}

// Location returns the time zone used for topic buckets.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Run generates and publishes one post. A duplicate is reported through
// Outcome.Duplicate, not as an error.
func (s *Service) Run(ctx context.Context) (*Outcome, error) {
	start := s.now()
	topic := PickTopic(start.In(s.loc).Hour(), s.rnd)
	slog.Info("starting generation", "topic", topic, "bucket", BucketForHour(start.In(s.loc).Hour()))

	var headlines []string
	if s.headlines != nil {
		h, err := s.headlines.Headlines(ctx, topic)
		if err != nil {
			slog.Warn("failed to fetch headlines", "topic", topic, "error", err)
		}
		headlines = h
	}

	gen, err := s.driver.Generate(ctx, topic, headlines)
	if err != nil {
		slog.Error("generation failed", "topic", topic, "error", err)
		metrics.ObserveRun("failed")
		return nil, err
	}

	out := &Outcome{
		Topic:    topic,
		Provider: gen.Provider,
		Attempts: gen.Attempts,
	}

	dup, err := s.guard.IsDuplicate(ctx, gen.Draft.Title)
	if err != nil {
		metrics.ObserveRun("failed")
		return nil, err
	}
	if dup {
		slog.Warn("similar post already exists, skipping", "topic", topic, "title", gen.Draft.Title)
		metrics.ObserveDuplicate()
		metrics.ObserveRun("duplicate")
		out.Duplicate = true
		s.finish(out, start)
		return out, nil
	}

	post, err := s.publisher.Publish(ctx, gen.Draft)
	if err != nil {
		slog.Error("failed to store post", "topic", topic, "error", err)
		metrics.ObserveRun("failed")
		return nil, err
	}
	metrics.ObservePublished(metrics.SourceAuto)
	metrics.ObserveRun("published")

	out.Post = post
	s.finish(out, start)
	slog.Info("post generated",
		"id", post.ID, "title", post.Title, "words", post.WordCount,
		"provider", gen.Provider, "attempts", gen.Attempts, "elapsed", out.Elapsed)
	return out, nil
}

func (s *Service) finish(out *Outcome, start time.Time) {
	end := s.now()
	out.Elapsed = end.Sub(start)
	out.FinishedAt = end.In(s.loc)
}
