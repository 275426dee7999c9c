// Package scoring attaches compatibility scores to postings while bounding
// the number of concurrent scorer calls process-wide.
package scoring

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Scorer rates how well a posting matches a profile, from 0 to 100.
type Scorer interface {
	Score(ctx context.Context, profile model.Profile, description, location string) (int, error)
}

// Coordinator runs a Scorer over postings. The semaphore is sized once in
// NewCoordinator and shared by every ScorePostings call.
type Coordinator struct {
	scorer  Scorer
	sem     *semaphore.Weighted
	limit   int64
	metrics *metrics.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records scorer calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator allowing at most maxConcurrent scorer
// calls at once. Values below 1 are treated as 1.
func NewCoordinator(scorer Scorer, maxConcurrent int, opts ...Option) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	c := &Coordinator{
		scorer: scorer,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		limit:  int64(maxConcurrent),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MaxConcurrent returns the configured ceiling.
func (c *Coordinator) MaxConcurrent() int { return int(c.limit) }

// ScorePostings returns copies of postings with Score set. Postings without a
// description score 0 and are not sent to the scorer. The first scorer error
// cancels the remaining calls and is returned.
func (c *Coordinator) ScorePostings(ctx context.Context, profile model.Profile, postings []model.Posting) ([]model.Posting, error) {
	scores := make([]int, len(postings))

	g, gCtx := errgroup.WithContext(ctx)
	for i := range postings {
		p := postings[i]
		if strings.TrimSpace(p.Description) == "" {
			c.metrics.ScorerCall("skipped")
			continue
		}

		g.Go(func() error {
			if err := c.sem.Acquire(gCtx, 1); err != nil {
				return eris.Wrap(err, "scoring: acquire slot")
			}
			defer c.sem.Release(1)

			c.metrics.ScorerBusy(1)
			defer c.metrics.ScorerBusy(-1)

			score, err := c.scorer.Score(gCtx, profile, p.Description, p.Location)
			if err != nil {
				c.metrics.ScorerCall("error")
				return eris.Wrapf(err, "scoring: posting %s", p.ID)
			}
			c.metrics.ScorerCall("ok")
			scores[i] = clamp(score)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Posting, len(postings))
	for i, p := range postings {
		p.Score = model.IntPtr(scores[i])
		out[i] = p
	}

	zap.L().Debug("scoring: postings scored",
		zap.Int("postings", len(out)),
		zap.Int64("max_concurrent", c.limit),
	)
	return out, nil
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
