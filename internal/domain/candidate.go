package domain

import "github.com/lib/pq"

// Candidate is an external party that can fulfil jobs in its service areas
type Candidate struct {
	CandidateID  string         `db:"candidate_id"`
	DisplayName  string         `db:"display_name"`
	Email        string         `db:"email"`
	BaseRate     float64        `db:"base_rate"`
	ServiceAreas pq.StringArray `db:"service_areas"`
	Active       bool           `db:"active"`
}

// ServesArea reports whether area is one of the candidate's service areas
func (c *Candidate) ServesArea(area string) bool {
	for _, a := range c.ServiceAreas {
		if a == area {
			return true
		}
	}
	return false
}

// RateOverride is a client-specific price for a candidate in one area
type RateOverride struct {
	CandidateID string  `db:"candidate_id"`
	Client      string  `db:"client"`
	Area        string  `db:"area"`
	Rate        float64 `db:"rate"`
}

// RankedCandidate is a candidate together with the rate used to order it
type RankedCandidate struct {
	Candidate
	EffectiveRate float64
}
