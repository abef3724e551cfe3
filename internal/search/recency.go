// Package search builds the candidate index and runs hybrid ranking
// over it: lexical full-text recall fused with vector similarity,
// skill coverage and skill recency.
package search

import (
	"math"
	"time"

	"talentmatch/internal/cv"
	"talentmatch/internal/storage"
)

const (
	// recencyFreshWindowDays is how long a skill counts as fully fresh.
	recencyFreshWindowDays = 365.0
	// recencyHalfLifeDays controls the exponential decay past the
	// fresh window (roughly two years to drop to 1/e).
	recencyHalfLifeDays = 730.0
	// recencyFloor keeps very stale skills from zeroing out a
	// candidate who demonstrably used them once.
	recencyFloor = 0.1
	// recencyNeutral is used when no usage date is known at all:
	// absence of evidence is not evidence of staleness.
	recencyNeutral = 0.5
)

// ComputeSkillRecency derives, per skill, the latest date the candidate
// demonstrably used it, from the parsed experiences and projects. An
// engagement with no end date contributes its start date.
func ComputeSkillRecency(parsed *cv.ParsedResume) map[string]storage.SkillRecency {
	out := make(map[string]storage.SkillRecency)

	observe := func(skill string, date time.Time, source string) {
		if skill == "" {
			return
		}
		if cur, ok := out[skill]; !ok || date.After(cur.LastUsed) {
			out[skill] = storage.SkillRecency{Skill: skill, LastUsed: date, Source: source}
		}
	}

	for _, exp := range parsed.Experiences {
		date, ok := engagementEnd(exp.StartDate, exp.EndDate)
		if !ok {
			continue
		}
		for _, skill := range exp.Skills {
			observe(skill, date, "experience")
		}
	}
	for _, p := range parsed.Projects {
		date, ok := engagementEnd(p.StartDate, p.EndDate)
		if !ok {
			continue
		}
		for _, skill := range p.Skills {
			observe(skill, date, "project")
		}
	}
	return out
}

func engagementEnd(start, end *time.Time) (time.Time, bool) {
	if end != nil {
		return *end, true
	}
	if start != nil {
		return *start, true
	}
	return time.Time{}, false
}

// RecencyScore maps a last-used date to [recencyFloor, 1]: flat 1.0
// inside the fresh window, then exponential decay.
func RecencyScore(lastUsed, now time.Time) float64 {
	days := now.Sub(lastUsed).Hours() / 24.0
	if days <= recencyFreshWindowDays {
		return 1.0
	}
	score := math.Exp(-(days - recencyFreshWindowDays) / recencyHalfLifeDays)
	if score < recencyFloor {
		return recencyFloor
	}
	return score
}
