package storage

// schemaStatements bootstraps the Postgres schema. The vector extension
// must be installable in the target database (pgvector).
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(100),
		balance     NUMERIC(12,6) NOT NULL DEFAULT 0,
		free_quota  NUMERIC(12,6) NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS candidates (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL REFERENCES users(id),
		name            VARCHAR(100) NOT NULL,
		email           VARCHAR(255),
		phone           VARCHAR(50),
		location        VARCHAR(100),
		years_experience INTEGER DEFAULT 0,
		current_title   VARCHAR(200),
		current_company VARCHAR(200),
		skills          TEXT[],
		education_level VARCHAR(50),
		source          VARCHAR(100),
		status          VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_user_status ON candidates (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates (email)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_phone ON candidates (phone)`,

	`CREATE TABLE IF NOT EXISTS resumes (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id),
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		file_uri     VARCHAR(500) NOT NULL,
		file_type    VARCHAR(20),
		text_content TEXT,
		text_hash    VARCHAR(64) NOT NULL,
		parsed_data  JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, text_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_candidate ON resumes (candidate_id)`,

	`CREATE TABLE IF NOT EXISTS experiences (
		id           BIGSERIAL PRIMARY KEY,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		resume_id    BIGINT REFERENCES resumes(id) ON DELETE SET NULL,
		company      VARCHAR(200) NOT NULL,
		title        VARCHAR(200) NOT NULL,
		start_date   DATE,
		end_date     DATE,
		skills       TEXT[],
		description  TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_experiences_candidate ON experiences (candidate_id)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id           BIGSERIAL PRIMARY KEY,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		resume_id    BIGINT REFERENCES resumes(id) ON DELETE SET NULL,
		project_name VARCHAR(200),
		role         VARCHAR(100),
		start_date   DATE,
		end_date     DATE,
		skills       TEXT[],
		description  TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_candidate ON projects (candidate_id)`,

	`CREATE TABLE IF NOT EXISTS education (
		id           BIGSERIAL PRIMARY KEY,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		resume_id    BIGINT REFERENCES resumes(id) ON DELETE SET NULL,
		school       VARCHAR(200),
		degree       VARCHAR(100),
		major        VARCHAR(200),
		start_date   DATE,
		end_date     DATE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS skill_recency (
		candidate_id   BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		skill          TEXT NOT NULL,
		last_used_date DATE NOT NULL,
		source         VARCHAR(20) NOT NULL DEFAULT 'experience',
		PRIMARY KEY (candidate_id, skill)
	)`,

	`CREATE TABLE IF NOT EXISTS candidate_index (
		candidate_id      BIGINT PRIMARY KEY REFERENCES candidates(id) ON DELETE CASCADE,
		lexical_tsv       TSVECTOR,
		embedding         VECTOR(1536),
		filters_json      JSONB,
		features_json     JSONB,
		embedding_version INTEGER NOT NULL DEFAULT 1,
		index_updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candidate_index_tsv ON candidate_index USING GIN (lexical_tsv)`,

	`CREATE TABLE IF NOT EXISTS merge_lineage (
		id             BIGSERIAL PRIMARY KEY,
		candidate_id   BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		from_resume_id BIGINT,
		merge_rule     VARCHAR(100),
		field_name     VARCHAR(100) NOT NULL,
		old_value      TEXT,
		new_value      TEXT,
		decided_by     VARCHAR(100) NOT NULL DEFAULT 'system',
		decided_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lineage_candidate ON merge_lineage (candidate_id)`,

	`CREATE TABLE IF NOT EXISTS usage_records (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		request_id        VARCHAR(64) NOT NULL UNIQUE,
		operation         VARCHAR(20) NOT NULL,
		model             VARCHAR(50) NOT NULL,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		cost              NUMERIC(12,6) NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_user_created ON usage_records (user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type          VARCHAR(20) NOT NULL,
		amount        NUMERIC(12,6) NOT NULL,
		balance_after NUMERIC(12,6) NOT NULL,
		reference_id  VARCHAR(64),
		remark        TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trans_user_created ON transactions (user_id, created_at)`,
}
