package dedup

import (
	"fmt"
	"strings"

	"talentmatch/internal/cv"
	"talentmatch/internal/storage"
)

// Rule selects how a field conflict is resolved when both the existing
// candidate and the incoming resume carry a non-empty value.
type Rule string

const (
	// RuleNewPriority keeps the incoming value.
	RuleNewPriority Rule = "new_priority"
	// RuleSourcePriority keeps whichever value came from a trusted
	// source, regardless of which resume is newer.
	RuleSourcePriority Rule = "source_priority"
	// RuleNonEmptyPriority takes whichever side is non-empty; when
	// both are, the incoming value wins the tie-break.
	RuleNonEmptyPriority Rule = "non_empty_priority"
)

// Resolver merges parsed resume fields into an existing candidate and
// records a lineage row for every field it actually changed.
type Resolver struct {
	Rule Rule
	// TrustedSources are the ingestion sources whose values win under
	// RuleSourcePriority.
	TrustedSources map[string]bool
}

func NewResolver(rule Rule) *Resolver {
	return &Resolver{
		Rule:           rule,
		TrustedSources: map[string]bool{"manual": true, "verified": true},
	}
}

// Merge applies the resolver's rule field by field, mutating candidate
// in place. An empty incoming value never overwrites a non-empty
// existing one, under any rule. Returns the lineage rows for the fields
// that changed; replaying the same resume yields none.
func (r *Resolver) Merge(candidate *storage.Candidate, parsed *cv.ParsedResume, fromResumeID int64, source string) []*storage.MergeLineage {
	var lineage []*storage.MergeLineage

	record := func(field, oldValue, newValue string) {
		lineage = append(lineage, &storage.MergeLineage{
			CandidateID:  candidate.ID,
			FromResumeID: fromResumeID,
			MergeRule:    string(r.Rule),
			FieldName:    field,
			OldValue:     oldValue,
			NewValue:     newValue,
			DecidedBy:    "system",
		})
	}

	mergeString := func(field string, dst *string, incoming string) {
		final := r.resolve(*dst, incoming, source)
		if final != *dst {
			record(field, *dst, final)
			*dst = final
		}
	}

	mergeString("name", &candidate.Name, strings.TrimSpace(parsed.Name))
	mergeString("email", &candidate.Email, NormalizeEmail(parsed.Email))
	mergeString("phone", &candidate.Phone, NormalizePhone(parsed.Phone))
	mergeString("location", &candidate.Location, strings.TrimSpace(parsed.Location))
	mergeString("current_title", &candidate.CurrentTitle, strings.TrimSpace(parsed.CurrentTitle))
	mergeString("current_company", &candidate.CurrentCompany, strings.TrimSpace(parsed.CurrentCompany))
	mergeString("education_level", &candidate.EducationLevel, strings.TrimSpace(parsed.EducationLevel))

	if parsed.YearsExp > 0 {
		old := candidate.YearsExp
		final := old
		if old == 0 || r.Rule != RuleSourcePriority || r.TrustedSources[source] {
			final = parsed.YearsExp
		}
		if final != old {
			record("years_experience", fmt.Sprintf("%d", old), fmt.Sprintf("%d", final))
			candidate.YearsExp = final
		}
	}

	// Skills always union: losing a skill on re-upload would be a
	// regression whatever the rule says.
	if added := unionSkills(&candidate.Skills, parsed.Skills); len(added) > 0 {
		record("skills", "", strings.Join(added, ","))
	}

	return lineage
}

func (r *Resolver) resolve(existing, incoming, source string) string {
	if incoming == "" {
		return existing
	}
	if existing == "" {
		return incoming
	}
	if r.Rule == RuleSourcePriority && !r.TrustedSources[source] {
		return existing
	}
	return incoming
}

// unionSkills appends incoming skills not already present
// (case-insensitively) and returns the ones it added.
func unionSkills(dst *[]string, incoming []string) []string {
	seen := make(map[string]bool, len(*dst))
	for _, s := range *dst {
		seen[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var added []string
	for _, s := range incoming {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		*dst = append(*dst, s)
		added = append(added, s)
	}
	return added
}
