package scoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, profile model.Profile, description, location string) (int, error) {
	args := m.Called(ctx, profile, description, location)
	return args.Int(0), args.Error(1)
}

// gaugeScorer tracks the peak number of concurrent Score calls.
type gaugeScorer struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	delay    time.Duration
}

func (g *gaugeScorer) Score(ctx context.Context, _ model.Profile, description, _ string) (int, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	g.calls.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return len(description), nil
}

func postingsWithDescriptions(n int) []model.Posting {
	out := make([]model.Posting, n)
	for i := range out {
		out[i] = model.Posting{ID: fmt.Sprintf("p%d", i), Description: fmt.Sprintf("desc %d", i), Location: "paris"}
	}
	return out
}

func TestScorePostings_AttachesScores(t *testing.T) {
	t.Parallel()

	profile := model.Profile{JobTitle: "go developer"}
	s := &mockScorer{}
	s.On("Score", mock.Anything, profile, "build apis", "paris").Return(87, nil)
	s.On("Score", mock.Anything, profile, "write docs", "lyon").Return(140, nil)

	c := NewCoordinator(s, 2)
	in := []model.Posting{
		{ID: "a", Description: "build apis", Location: "paris"},
		{ID: "b", Description: "write docs", Location: "lyon"},
	}
	got, err := c.ScorePostings(context.Background(), profile, in)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 87, got[0].ScoreValue())
	assert.Equal(t, 100, got[1].ScoreValue(), "scores are clamped")
	assert.Nil(t, in[0].Score, "input untouched")
	s.AssertExpectations(t)
}

func TestScorePostings_EmptyDescriptionSkipsScorer(t *testing.T) {
	t.Parallel()

	s := &mockScorer{}
	c := NewCoordinator(s, 1)

	got, err := c.ScorePostings(context.Background(), model.Profile{}, []model.Posting{{ID: "a"}, {ID: "b", Description: "   "}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, p := range got {
		require.NotNil(t, p.Score)
		assert.Equal(t, 0, *p.Score)
	}
	s.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScorePostings_ErrorPropagates(t *testing.T) {
	t.Parallel()

	s := &mockScorer{}
	s.On("Score", mock.Anything, mock.Anything, "ok", mock.Anything).Return(50, nil).Maybe()
	s.On("Score", mock.Anything, mock.Anything, "bad", mock.Anything).Return(0, eris.New("scorer down"))

	c := NewCoordinator(s, 4)
	_, err := c.ScorePostings(context.Background(), model.Profile{}, []model.Posting{
		{ID: "1", Description: "ok"},
		{ID: "2", Description: "bad"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer down")
}

func TestScorePostings_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	const ceiling = 3
	g := &gaugeScorer{delay: 10 * time.Millisecond}
	c := NewCoordinator(g, ceiling)

	got, err := c.ScorePostings(context.Background(), model.Profile{}, postingsWithDescriptions(40))
	require.NoError(t, err)

	assert.Len(t, got, 40)
	assert.Equal(t, int64(40), g.calls.Load())
	assert.LessOrEqual(t, g.peak.Load(), int64(ceiling))
	assert.Equal(t, "desc 7", got[7].Description)
	assert.Equal(t, len("desc 7"), got[7].ScoreValue())
}

func TestScorePostings_SemaphoreSharedAcrossCalls(t *testing.T) {
	t.Parallel()

	const ceiling = 2
	g := &gaugeScorer{delay: 5 * time.Millisecond}
	c := NewCoordinator(g, ceiling)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ScorePostings(context.Background(), model.Profile{}, postingsWithDescriptions(10))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, g.peak.Load(), int64(ceiling))
	assert.Equal(t, int64(40), g.calls.Load())
}

func TestNewCoordinator_MinimumCeiling(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, NewCoordinator(&mockScorer{}, 0).MaxConcurrent())
}
