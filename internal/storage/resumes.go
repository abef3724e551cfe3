package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (db *DB) CreateResume(ctx context.Context, r *Resume) error {
	query := `INSERT INTO resumes (user_id, candidate_id, file_uri, file_type, text_content, text_hash, parsed_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return db.connection.QueryRowContext(ctx, query,
		r.UserID, r.CandidateID, r.FileURI, r.FileType, r.TextContent, r.TextHash, r.ParsedJSON,
	).Scan(&r.ID, &r.CreatedAt)
}

// GetResumeByHash finds the resume with the given content hash,
// regardless of which candidate owns it within the tenant's pool.
// Uniqueness of the hash is per tenant, so two tenants can each hold a
// copy of the same document.
func (db *DB) GetResumeByHash(ctx context.Context, userID int64, textHash string) (*Resume, error) {
	r := &Resume{}
	query := `SELECT id, user_id, candidate_id, file_uri, COALESCE(file_type, ''), text_hash, created_at
		FROM resumes
		WHERE user_id = $2 AND text_hash = $1`
	err := db.connection.QueryRowContext(ctx, query, textHash, userID).
		Scan(&r.ID, &r.UserID, &r.CandidateID, &r.FileURI, &r.FileType, &r.TextHash, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) ListResumes(ctx context.Context, candidateID int64) ([]*Resume, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, user_id, candidate_id, file_uri, COALESCE(file_type, ''), text_hash, created_at
		 FROM resumes WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Resume
	for rows.Next() {
		r := &Resume{}
		if err := rows.Scan(&r.ID, &r.UserID, &r.CandidateID, &r.FileURI, &r.FileType, &r.TextHash, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertLineage appends the merge audit rows. Lineage is append-only,
// there is no update or delete path.
func (db *DB) InsertLineage(ctx context.Context, records []MergeLineage) error {
	for _, l := range records {
		_, err := db.connection.ExecContext(ctx,
			`INSERT INTO merge_lineage (candidate_id, from_resume_id, merge_rule, field_name, old_value, new_value, decided_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.CandidateID, l.FromResumeID, l.MergeRule, l.FieldName, l.OldValue, l.NewValue, l.DecidedBy)
		if err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ListLineage(ctx context.Context, candidateID int64) ([]MergeLineage, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, candidate_id, COALESCE(from_resume_id, 0), COALESCE(merge_rule, ''), field_name,
		        COALESCE(old_value, ''), COALESCE(new_value, ''), decided_by, decided_at
		 FROM merge_lineage WHERE candidate_id = $1 ORDER BY decided_at, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MergeLineage
	for rows.Next() {
		var l MergeLineage
		if err := rows.Scan(&l.ID, &l.CandidateID, &l.FromResumeID, &l.MergeRule, &l.FieldName,
			&l.OldValue, &l.NewValue, &l.DecidedBy, &l.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
