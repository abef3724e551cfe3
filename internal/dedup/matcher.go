// Package dedup decides whether an incoming parsed resume belongs to an
// existing candidate, and reconciles fields when it does.
package dedup

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"talentmatch/internal/cv"
	"talentmatch/internal/storage"
)

// ErrAmbiguousMerge means two distinct existing candidates both
// plausibly match the incoming resume. The resolver never guesses; the
// conflict goes to manual resolution.
var ErrAmbiguousMerge = errors.New("ambiguous merge: multiple candidates match")

// Decision is the tri-state outcome of identity matching. A boolean
// cannot express "don't know", which is exactly the case that must not
// be auto-resolved.
type Decision int

const (
	NoMatch Decision = iota
	Match
	Ambiguous
)

// MatchResult carries the decision, the matched candidate when there is
// exactly one, and a confidence score for the audit trail.
type MatchResult struct {
	Decision   Decision
	Candidate  *storage.Candidate
	Confidence float64
	Signal     string // email / phone / name+company
}

// weakSimilarityThreshold is the minimum company-name similarity for a
// name-only match to be trusted.
const weakSimilarityThreshold = 0.85

type matcherStore interface {
	FindByContact(ctx context.Context, userID int64, email, phone string) ([]*storage.Candidate, error)
	FindByName(ctx context.Context, userID int64, name string) ([]*storage.Candidate, error)
}

// Matcher implements the identity strategy: exact email/phone first,
// then a name+company similarity heuristic.
type Matcher struct {
	store matcherStore
}

func NewMatcher(store matcherStore) *Matcher {
	return &Matcher{store: store}
}

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizeEmail lower-cases and trims; NormalizePhone strips everything
// but digits so formatting differences don't defeat the match.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// Match finds the candidate the parsed resume belongs to, if any.
func (m *Matcher) Match(ctx context.Context, userID int64, parsed *cv.ParsedResume) (*MatchResult, error) {
	email := NormalizeEmail(parsed.Email)
	phone := NormalizePhone(parsed.Phone)

	if email != "" || phone != "" {
		hits, err := m.store.FindByContact(ctx, userID, email, phone)
		if err != nil {
			return nil, err
		}
		switch len(hits) {
		case 0:
			// fall through to the weak heuristic
		case 1:
			signal := "email"
			if email == "" || hits[0].Email != email {
				signal = "phone"
			}
			return &MatchResult{Decision: Match, Candidate: hits[0], Confidence: 1.0, Signal: signal}, nil
		default:
			// Email says one person, phone says another.
			return &MatchResult{Decision: Ambiguous, Confidence: 1.0, Signal: "contact"}, nil
		}
	}

	if parsed.Name == "" {
		return &MatchResult{Decision: NoMatch}, nil
	}

	hits, err := m.store.FindByName(ctx, userID, parsed.Name)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 || parsed.CurrentCompany == "" {
		return &MatchResult{Decision: NoMatch}, nil
	}

	var matched []*storage.Candidate
	best := 0.0
	var bestCandidate *storage.Candidate
	for _, c := range hits {
		if c.CurrentCompany == "" {
			continue
		}
		score := similarityRatio(parsed.CurrentCompany, c.CurrentCompany)
		if score >= weakSimilarityThreshold {
			matched = append(matched, c)
			if score > best {
				best = score
				bestCandidate = c
			}
		}
	}

	switch len(matched) {
	case 0:
		return &MatchResult{Decision: NoMatch}, nil
	case 1:
		return &MatchResult{Decision: Match, Candidate: bestCandidate, Confidence: best, Signal: "name+company"}, nil
	default:
		return &MatchResult{Decision: Ambiguous, Confidence: best, Signal: "name+company"}, nil
	}
}

// similarityRatio is a bigram Dice coefficient over the lower-cased
// inputs, in [0,1]. Good enough to compare company names; anything
// fancier belongs in an external similarity service.
func similarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}

	bigrams := func(s string) map[string]int {
		m := make(map[string]int)
		runes := []rune(s)
		for i := 0; i < len(runes)-1; i++ {
			m[string(runes[i:i+2])]++
		}
		return m
	}

	ga, gb := bigrams(a), bigrams(b)
	overlap := 0
	total := 0
	for g, n := range ga {
		total += n
		if m := gb[g]; m < n {
			overlap += m
		} else {
			overlap += n
		}
	}
	for _, n := range gb {
		total += n
	}
	if total == 0 {
		return 0.0
	}
	return 2.0 * float64(overlap) / float64(total)
}
