package storage

import (
	"context"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Filters are the structured pre-filters applied during recall, not
// after scoring, so that the recall limit is spent on eligible
// candidates only.
type Filters struct {
	Location string `json:"location,omitempty"`
	MinYears int    `json:"min_years,omitempty"`
}

// RecallHit is one candidate returned by the lexical or vector recall
// path.
type RecallHit struct {
	CandidateID    int64
	Name           string
	CurrentTitle   string
	CurrentCompany string
	Location       string
	YearsExp       int
	Skills         []string
	LexicalScore   float64
	VectorScore    float64
	HasEmbedding   bool
}

// UpsertIndex rebuilds the index row for a candidate. A nil embedding
// keeps whatever vector was stored before (possibly none), so a failed
// embedding call still refreshes the lexical half.
func (db *DB) UpsertIndex(ctx context.Context, candidateID int64, lexicalText string,
	embedding []float32, filtersJSON, featuresJSON []byte, version int) error {

	var vec any
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = v
	}

	_, err := db.connection.ExecContext(ctx,
		`INSERT INTO candidate_index
		   (candidate_id, lexical_tsv, embedding, filters_json, features_json, embedding_version, index_updated_at)
		 VALUES ($1, to_tsvector('simple', $2), $3, $4, $5, $6, now())
		 ON CONFLICT (candidate_id) DO UPDATE SET
		   lexical_tsv = to_tsvector('simple', $2),
		   embedding = COALESCE($3, candidate_index.embedding),
		   filters_json = $4,
		   features_json = $5,
		   embedding_version = $6,
		   index_updated_at = now()`,
		candidateID, lexicalText, vec, filtersJSON, featuresJSON, version)
	return err
}

func (db *DB) DeleteIndex(ctx context.Context, candidateID int64) error {
	if _, err := db.connection.ExecContext(ctx,
		`DELETE FROM candidate_index WHERE candidate_id = $1`, candidateID); err != nil {
		return err
	}
	_, err := db.connection.ExecContext(ctx,
		`DELETE FROM skill_recency WHERE candidate_id = $1`, candidateID)
	return err
}

const recallFilterClause = `
	  AND c.status = 'active'
	  AND ($3 = '' OR c.location ILIKE '%' || $3 || '%')
	  AND ($4 = 0 OR COALESCE(c.years_experience, 0) >= $4)`

// LexicalRecall runs full-text recall over the candidate index. The
// query is a tsquery expression (terms joined by |).
func (db *DB) LexicalRecall(ctx context.Context, userID int64, tsQuery string, f Filters, limit int) ([]RecallHit, error) {
	query := `
		SELECT c.id, c.name, COALESCE(c.current_title, ''), COALESCE(c.current_company, ''),
		       COALESCE(c.location, ''), COALESCE(c.years_experience, 0), c.skills,
		       ts_rank(ci.lexical_tsv, to_tsquery('simple', $2)) AS lexical_score,
		       ci.embedding IS NOT NULL
		FROM candidates c
		JOIN candidate_index ci ON c.id = ci.candidate_id
		WHERE c.user_id = $1
		  AND ci.lexical_tsv @@ to_tsquery('simple', $2)` + recallFilterClause + `
		ORDER BY lexical_score DESC, c.id
		LIMIT $5`

	rows, err := db.connection.QueryContext(ctx, query, userID, tsQuery, f.Location, f.MinYears, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecallHit
	for rows.Next() {
		var h RecallHit
		if err := rows.Scan(&h.CandidateID, &h.Name, &h.CurrentTitle, &h.CurrentCompany,
			&h.Location, &h.YearsExp, pq.Array(&h.Skills), &h.LexicalScore, &h.HasEmbedding); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// VectorRecall runs cosine-similarity recall against the pgvector
// column. Candidates without an embedding are skipped here; they can
// still surface through lexical recall.
func (db *DB) VectorRecall(ctx context.Context, userID int64, embedding []float32, f Filters, limit int) ([]RecallHit, error) {
	query := `
		SELECT c.id, c.name, COALESCE(c.current_title, ''), COALESCE(c.current_company, ''),
		       COALESCE(c.location, ''), COALESCE(c.years_experience, 0), c.skills,
		       1 - (ci.embedding <=> $2) AS vector_score
		FROM candidates c
		JOIN candidate_index ci ON c.id = ci.candidate_id
		WHERE c.user_id = $1
		  AND ci.embedding IS NOT NULL` + recallFilterClause + `
		ORDER BY ci.embedding <=> $2, c.id
		LIMIT $5`

	rows, err := db.connection.QueryContext(ctx, query,
		userID, pgvector.NewVector(embedding), f.Location, f.MinYears, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecallHit
	for rows.Next() {
		var h RecallHit
		if err := rows.Scan(&h.CandidateID, &h.Name, &h.CurrentTitle, &h.CurrentCompany,
			&h.Location, &h.YearsExp, pq.Array(&h.Skills), &h.VectorScore); err != nil {
			return nil, err
		}
		h.HasEmbedding = true
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListActiveCandidateIDs returns ids for a full reindex pass.
func (db *DB) ListActiveCandidateIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT id FROM candidates WHERE status = 'active'`
	args := []any{}
	if userID != 0 {
		query += ` AND user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := db.connection.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StaleEmbeddingCandidateIDs finds candidates whose stored vector was
// produced by an older embedding model version.
func (db *DB) StaleEmbeddingCandidateIDs(ctx context.Context, version int) ([]int64, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT candidate_id FROM candidate_index WHERE embedding_version < $1 ORDER BY candidate_id`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
