package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const candidateColumns = `id, user_id, name, COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(location, ''), COALESCE(years_experience, 0), COALESCE(current_title, ''),
	COALESCE(current_company, ''), skills, COALESCE(education_level, ''),
	COALESCE(source, ''), status, created_at, updated_at`

func scanCandidate(row interface{ Scan(...any) error }) (*Candidate, error) {
	c := &Candidate{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone,
		&c.Location, &c.YearsExp, &c.CurrentTitle,
		&c.CurrentCompany, pq.Array(&c.Skills), &c.EducationLevel,
		&c.Source, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) CreateCandidate(ctx context.Context, c *Candidate) error {
	query := `INSERT INTO candidates
		(user_id, name, email, phone, location, years_experience,
		 current_title, current_company, skills, education_level, source, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, 'active')
		RETURNING id, created_at, updated_at`
	return db.connection.QueryRowContext(ctx, query,
		c.UserID, c.Name, c.Email, c.Phone, c.Location, c.YearsExp,
		c.CurrentTitle, c.CurrentCompany, pq.Array(c.Skills),
		c.EducationLevel, c.Source,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (db *DB) GetCandidate(ctx context.Context, userID, id int64) (*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1 AND user_id = $2`
	return scanCandidate(db.connection.QueryRowContext(ctx, query, id, userID))
}

// GetCandidateByID loads a candidate regardless of tenant. Maintenance
// tools only; request paths must use GetCandidate.
func (db *DB) GetCandidateByID(ctx context.Context, id int64) (*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	return scanCandidate(db.connection.QueryRowContext(ctx, query, id))
}

// UpdateCandidate persists the merged snapshot fields.
func (db *DB) UpdateCandidate(ctx context.Context, c *Candidate) error {
	query := `UPDATE candidates SET
		name = $1, email = NULLIF($2, ''), phone = NULLIF($3, ''), location = $4,
		years_experience = $5, current_title = $6, current_company = $7,
		skills = $8, education_level = $9, updated_at = now()
		WHERE id = $10 AND user_id = $11`
	res, err := db.connection.ExecContext(ctx, query,
		c.Name, c.Email, c.Phone, c.Location, c.YearsExp,
		c.CurrentTitle, c.CurrentCompany, pq.Array(c.Skills),
		c.EducationLevel, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteCandidate flips status to deleted and drops the derived
// index row so the candidate stops appearing in recall.
func (db *DB) SoftDeleteCandidate(ctx context.Context, userID, id int64) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE candidates SET status = 'deleted', updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND status = 'active'`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = db.connection.ExecContext(ctx,
		`DELETE FROM candidate_index WHERE candidate_id = $1`, id)
	return err
}

func (db *DB) ListCandidates(ctx context.Context, userID int64, limit, offset int) ([]*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates
		WHERE user_id = $1 AND status = 'active'
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := db.connection.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByContact returns every active candidate of the tenant whose email
// or phone matches. More than one row means the identity signals
// disagree and the merge is ambiguous.
func (db *DB) FindByContact(ctx context.Context, userID int64, email, phone string) ([]*Candidate, error) {
	if email == "" && phone == "" {
		return nil, nil
	}
	query := `SELECT ` + candidateColumns + ` FROM candidates
		WHERE user_id = $1 AND status = 'active'
		  AND ((NULLIF($2, '') IS NOT NULL AND email = $2)
		    OR (NULLIF($3, '') IS NOT NULL AND phone = $3))
		ORDER BY id`
	rows, err := db.connection.QueryContext(ctx, query, userID, email, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByName returns active same-name candidates for the weak-match
// heuristic.
func (db *DB) FindByName(ctx context.Context, userID int64, name string) ([]*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates
		WHERE user_id = $1 AND status = 'active' AND name = $2 ORDER BY id`
	rows, err := db.connection.QueryContext(ctx, query, userID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertExperiences appends the experience rows extracted from one
// resume. Older rows stay as history.
func (db *DB) InsertExperiences(ctx context.Context, rows []ExperienceRow) error {
	for _, r := range rows {
		_, err := db.connection.ExecContext(ctx,
			`INSERT INTO experiences (candidate_id, resume_id, company, title, start_date, end_date, skills, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.CandidateID, r.ResumeID, r.Company, r.Title, r.StartDate, r.EndDate,
			pq.Array(r.Skills), r.Description)
		if err != nil {
			return fmt.Errorf("insert experience: %w", err)
		}
	}
	return nil
}

func (db *DB) InsertProjects(ctx context.Context, rows []ProjectRow) error {
	for _, r := range rows {
		_, err := db.connection.ExecContext(ctx,
			`INSERT INTO projects (candidate_id, resume_id, project_name, role, start_date, end_date, skills, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.CandidateID, r.ResumeID, r.Name, r.Role, r.StartDate, r.EndDate,
			pq.Array(r.Skills), r.Description)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
	}
	return nil
}

func (db *DB) InsertEducation(ctx context.Context, rows []EducationRow) error {
	for _, r := range rows {
		_, err := db.connection.ExecContext(ctx,
			`INSERT INTO education (candidate_id, resume_id, school, degree, major, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.CandidateID, r.ResumeID, r.School, r.Degree, r.Major, r.StartDate, r.EndDate)
		if err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
	}
	return nil
}

func (db *DB) GetExperiences(ctx context.Context, candidateID int64) ([]ExperienceRow, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, candidate_id, COALESCE(resume_id, 0), company, title, start_date, end_date,
		        skills, COALESCE(description, '')
		 FROM experiences WHERE candidate_id = $1 ORDER BY start_date DESC NULLS LAST, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExperienceRow
	for rows.Next() {
		var r ExperienceRow
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.ResumeID, &r.Company, &r.Title,
			&r.StartDate, &r.EndDate, pq.Array(&r.Skills), &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) GetProjects(ctx context.Context, candidateID int64) ([]ProjectRow, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, candidate_id, COALESCE(resume_id, 0), COALESCE(project_name, ''), COALESCE(role, ''),
		        start_date, end_date, skills, COALESCE(description, '')
		 FROM projects WHERE candidate_id = $1 ORDER BY start_date DESC NULLS LAST, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectRow
	for rows.Next() {
		var r ProjectRow
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.ResumeID, &r.Name, &r.Role,
			&r.StartDate, &r.EndDate, pq.Array(&r.Skills), &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) GetEducation(ctx context.Context, candidateID int64) ([]EducationRow, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, candidate_id, COALESCE(resume_id, 0), COALESCE(school, ''), COALESCE(degree, ''),
		        COALESCE(major, ''), start_date, end_date
		 FROM education WHERE candidate_id = $1 ORDER BY end_date DESC NULLS LAST, id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EducationRow
	for rows.Next() {
		var r EducationRow
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.ResumeID, &r.School, &r.Degree,
			&r.Major, &r.StartDate, &r.EndDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
