package storage

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
)

// UpsertSkillRecency advances last_used_date for each (candidate, skill)
// pair. GREATEST keeps the stored date monotonic: an older job ingested
// after a newer one never regresses it.
func (db *DB) UpsertSkillRecency(ctx context.Context, candidateID int64, dates map[string]SkillRecency) error {
	for skill, rec := range dates {
		_, err := db.connection.ExecContext(ctx,
			`INSERT INTO skill_recency (candidate_id, skill, last_used_date, source)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (candidate_id, skill) DO UPDATE
			   SET last_used_date = GREATEST(skill_recency.last_used_date, EXCLUDED.last_used_date),
			       source = CASE WHEN EXCLUDED.last_used_date > skill_recency.last_used_date
			                     THEN EXCLUDED.source ELSE skill_recency.source END`,
			candidateID, skill, rec.LastUsed, rec.Source)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetSkillRecency returns the freshest last_used_date per requested
// skill for one candidate, keyed by the lower-cased skill name. Skills
// with no row are simply absent.
func (db *DB) GetSkillRecency(ctx context.Context, candidateID int64, skills []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	if len(skills) == 0 {
		return out, nil
	}
	lowered := make([]string, len(skills))
	for i, s := range skills {
		lowered[i] = strings.ToLower(s)
	}
	rows, err := db.connection.QueryContext(ctx,
		`SELECT lower(skill), last_used_date FROM skill_recency
		 WHERE candidate_id = $1 AND lower(skill) = ANY($2)`,
		candidateID, pq.Array(lowered))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var skill string
		var last time.Time
		if err := rows.Scan(&skill, &last); err != nil {
			return nil, err
		}
		out[skill] = last
	}
	return out, rows.Err()
}

// ListSkillRecency returns all recency rows for a candidate, most recent
// first. Used for the features snapshot.
func (db *DB) ListSkillRecency(ctx context.Context, candidateID int64) ([]SkillRecency, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT candidate_id, skill, last_used_date, source FROM skill_recency
		 WHERE candidate_id = $1 ORDER BY last_used_date DESC, skill`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SkillRecency
	for rows.Next() {
		var r SkillRecency
		if err := rows.Scan(&r.CandidateID, &r.Skill, &r.LastUsed, &r.Source); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
