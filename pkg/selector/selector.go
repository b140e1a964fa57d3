// Package selector picks the best-matching template for a message among many
// candidates using a deterministic scoring heuristic.
package selector

import (
	"github.com/sirupsen/logrus"

	"github.com/regexflow/regexflow/pkg/matcher"
	"github.com/regexflow/regexflow/pkg/types"
)

// Score weights. Field count dominates, total captured length breaks up
// coarse ties, and high-value field names get fixed bonuses.
const (
	fieldCountWeight = 10.0
	lengthWeight     = 0.1
	amountBonus      = 20.0
	balanceBonus     = 15.0
	bankBonus        = 10.0
	dateBonus        = 5.0
)

// Selector ranks candidate templates against message text.
type Selector struct {
	matcher *matcher.BoundedMatcher
	log     *logrus.Logger
}

// New creates a selector driving the given matcher.
func New(m *matcher.BoundedMatcher, log *logrus.Logger) *Selector {
	if log == nil {
		log = logrus.New()
	}
	return &Selector{matcher: m, log: log}
}

// Score computes the match score for one pattern against text using the
// light extraction path. A pattern that errors scores zero.
func (s *Selector) Score(patternSrc, text string) float64 {
	fields, err := s.matcher.Extract(patternSrc, text)
	if err != nil {
		return 0
	}

	totalLen := 0
	for _, v := range fields {
		totalLen += len(v)
	}
	score := float64(len(fields))*fieldCountWeight + float64(totalLen)*lengthWeight

	if _, ok := fields["amount"]; ok {
		score += amountBonus
	}
	if _, ok := fields["balance"]; ok {
		score += balanceBonus
	}
	if _, ok := fields["bank"]; ok {
		score += bankBonus
	}
	if _, ok := fields["date"]; ok {
		score += dateBonus
	}
	return score
}

// SelectBest returns the highest-scoring candidate whose pattern matches
// text, or ok=false when no candidate matches. Candidates are value
// snapshots and are never mutated. Ties resolve to the first candidate seen:
// the strict-greater comparison below is what makes selection deterministic
// for equal scores, so it must not become >=.
func (s *Selector) SelectBest(text string, candidates []types.Template) (types.Template, bool) {
	var best types.Template
	bestScore := 0.0
	found := false

	for _, candidate := range candidates {
		matched, err := s.matcher.Matches(candidate.Pattern, text)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"template": candidate.ID,
				"error":    err,
			}).Warn("candidate failed to match, skipping")
			continue
		}
		if !matched {
			continue
		}

		score := s.Score(candidate.Pattern, text)
		if score > bestScore {
			bestScore = score
			best = candidate
			found = true
		}
	}

	return best, found
}
