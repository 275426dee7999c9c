package ai

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// Scorer rates postings against a profile with a language model.
type Scorer struct {
	client anthropic.Client
	model  string
}

var _ scoring.Scorer = (*Scorer)(nil)

// NewScorer creates a Scorer using model, or the default scoring model.
func NewScorer(client anthropic.Client, model string) *Scorer {
	if model == "" {
		model = DefaultModels().Score
	}
	return &Scorer{client: client, model: model}
}

// Score implements scoring.Scorer.
func (s *Scorer) Score(ctx context.Context, profile model.Profile, description, location string) (int, error) {
	prompt := fmt.Sprintf(scorePrompt,
		profile.JobTitle, profile.Location, profile.Bio, mustJSON(profile.WorkExperience),
		location, description,
	)
	text, err := complete(ctx, s.client, s.model, 64, prompt, "score")
	if err != nil {
		return 0, err
	}
	var out struct {
		Score *float64 `json:"score"`
	}
	if err := decode(text, &out); err != nil {
		return 0, err
	}
	if out.Score == nil {
		return 0, eris.New("ai: score missing")
	}
	return int(*out.Score + 0.5), nil
}
