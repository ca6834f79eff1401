// Package ranker selects the candidates eligible for a job and orders them
// by the rate the job's client would pay.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// Directory provides the candidate and rate data the ranker works on
type Directory interface {
	CandidatesForArea(ctx context.Context, area string) ([]domain.Candidate, error)
	RateOverrides(ctx context.Context, client, area string) ([]domain.RateOverride, error)
}

// Ranker orders candidates for a job
type Ranker struct {
	directory Directory
	logger    *slog.Logger
}

// New creates a new Ranker
func New(directory Directory, logger *slog.Logger) *Ranker {
	return &Ranker{
		directory: directory,
		logger:    logger,
	}
}

// Rank returns the eligible candidates for area, cheapest first.
// An empty result is not an error.
func (r *Ranker) Rank(ctx context.Context, area, client string) ([]domain.RankedCandidate, error) {
	candidates, err := r.directory.CandidatesForArea(ctx, area)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	overrides, err := r.directory.RateOverrides(ctx, client, area)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate overrides: %w", err)
	}

	ranked := Order(candidates, overrides, area, client)

	r.logger.Info("Candidates ranked",
		slog.String("area", area),
		slog.String("client", client),
		slog.Int("candidates", len(candidates)),
		slog.Int("eligible", len(ranked)),
	)

	return ranked, nil
}

// Order filters candidates down to active ones that serve area and have a
// contact address, removes duplicates, applies client overrides and sorts by
// effective rate ascending with the candidate id as tie breaker.
func Order(candidates []domain.Candidate, overrides []domain.RateOverride, area, client string) []domain.RankedCandidate {
	rates := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		if o.Client != client || o.Area != area {
			continue
		}
		// lowest override wins if the directory ever returns more than one
		if existing, ok := rates[o.CandidateID]; ok && existing <= o.Rate {
			continue
		}
		rates[o.CandidateID] = o.Rate
	}

	seen := make(map[string]struct{}, len(candidates))
	ranked := make([]domain.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Active || !c.ServesArea(area) || strings.TrimSpace(c.Email) == "" {
			continue
		}
		if _, dup := seen[c.CandidateID]; dup {
			continue
		}
		seen[c.CandidateID] = struct{}{}

		rate := c.BaseRate
		if override, ok := rates[c.CandidateID]; ok {
			rate = override
		}
		ranked = append(ranked, domain.RankedCandidate{
			Candidate:     c,
			EffectiveRate: rate,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].EffectiveRate != ranked[j].EffectiveRate {
			return ranked[i].EffectiveRate < ranked[j].EffectiveRate
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	return ranked
}
