package storage

import "time"

// Candidate is the deduplicated person record, owned by one user
// (tenant). It is soft-deleted by flipping Status, never removed.
type Candidate struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Location       string    `json:"location,omitempty"`
	YearsExp       int       `json:"years_experience"`
	CurrentTitle   string    `json:"current_title,omitempty"`
	CurrentCompany string    `json:"current_company,omitempty"`
	Skills         []string  `json:"skills"`
	EducationLevel string    `json:"education_level,omitempty"`
	Source         string    `json:"source,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Resume is an immutable reference to one ingested document. TextHash is
// unique: re-ingesting byte-identical text is a no-op.
type Resume struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CandidateID int64     `json:"candidate_id"`
	FileURI     string    `json:"file_uri"`
	FileType    string    `json:"file_type"`
	TextContent string    `json:"-"`
	TextHash    string    `json:"text_hash"`
	ParsedJSON  []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExperienceRow, ProjectRow and EducationRow are time-bounded child facts
// of a candidate, tagged with the resume they came from.
type ExperienceRow struct {
	ID          int64
	CandidateID int64
	ResumeID    int64
	Company     string
	Title       string
	StartDate   *time.Time
	EndDate     *time.Time
	Skills      []string
	Description string
}

type ProjectRow struct {
	ID          int64
	CandidateID int64
	ResumeID    int64
	Name        string
	Role        string
	StartDate   *time.Time
	EndDate     *time.Time
	Skills      []string
	Description string
}

type EducationRow struct {
	ID          int64
	CandidateID int64
	ResumeID    int64
	School      string
	Degree      string
	Major       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// SkillRecency holds the latest date a candidate demonstrably used a
// skill. Unique per (candidate, skill); the date never regresses.
type SkillRecency struct {
	CandidateID int64     `json:"candidate_id"`
	Skill       string    `json:"skill"`
	LastUsed    time.Time `json:"last_used_date"`
	Source      string    `json:"source"` // experience or project
}

// MergeLineage is one append-only audit row per field changed during a
// merge.
type MergeLineage struct {
	ID           int64     `json:"id"`
	CandidateID  int64     `json:"candidate_id"`
	FromResumeID int64     `json:"from_resume_id"`
	MergeRule    string    `json:"merge_rule"`
	FieldName    string    `json:"field_name"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	DecidedBy    string    `json:"decided_by"`
	DecidedAt    time.Time `json:"decided_at"`
}

// User is the billing account. FreeQuota is the lifetime quota limit;
// the remaining portion is derived from total recorded usage.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Balance   float64   `json:"balance"`
	FreeQuota float64   `json:"free_quota"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageRecord is one append-only row per billable operation, keyed by the
// caller-supplied idempotency key RequestID.
type UsageRecord struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	RequestID        string    `json:"request_id"`
	Operation        string    `json:"operation"` // match / explain / ocr
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	CreatedAt        time.Time `json:"created_at"`
}

// Transaction is one append-only ledger entry per balance mutation.
type Transaction struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Type         string    `json:"type"` // deduct / recharge / free_grant / refund
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Remark       string    `json:"remark,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	TxDeduct    = "deduct"
	TxRecharge  = "recharge"
	TxFreeGrant = "free_grant"
	TxRefund    = "refund"
)

// IndexRow is the candidate's derived index entry, minus the tsvector and
// vector columns which only exist inside Postgres.
type IndexRow struct {
	CandidateID      int64
	FiltersJSON      []byte
	FeaturesJSON     []byte
	EmbeddingVersion int
	IndexUpdatedAt   time.Time
}
