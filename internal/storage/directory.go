package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// CandidatesForArea returns active candidates with a contact address that
// serve the area. Ordering is left to the ranker.
func (s *Storage) CandidatesForArea(ctx context.Context, area string) ([]domain.Candidate, error) {
	query := `
		SELECT candidate_id, display_name, email, base_rate, service_areas, active
		FROM candidates
		WHERE $1 = ANY(service_areas)
		  AND active
		  AND email IS NOT NULL AND email <> ''
	`

	var candidates []domain.Candidate
	if err := s.db.SelectContext(ctx, &candidates, query, area); err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	return candidates, nil
}

// RateOverrides returns client-specific rates for the area
func (s *Storage) RateOverrides(ctx context.Context, client, area string) ([]domain.RateOverride, error) {
	query := `
		SELECT candidate_id, client, area, rate
		FROM candidate_rates
		WHERE client = $1 AND area = $2
	`

	var overrides []domain.RateOverride
	if err := s.db.SelectContext(ctx, &overrides, query, client, area); err != nil {
		return nil, fmt.Errorf("failed to select rate overrides: %w", err)
	}
	return overrides, nil
}
