package cv

import "time"

// ParsedResume is the structured record produced by a resume parser.
// Field extraction itself happens in an external collaborator (see
// ingest.Parser); this package only defines the shape and the plain-text
// extraction step.
type ParsedResume struct {
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Location       string       `json:"location"`
	YearsExp       int          `json:"years_experience"`
	CurrentTitle   string       `json:"current_title"`
	CurrentCompany string       `json:"current_company"`
	Skills         []string     `json:"skills"`
	EducationLevel string       `json:"education_level"`
	Experiences    []Experience `json:"experiences"`
	Projects       []Project    `json:"projects"`
	Education      []Education  `json:"education"`
	FullText       string       `json:"full_text"`
}

type Experience struct {
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"` // nil means current
	Skills      []string   `json:"skills"`
	Description string     `json:"description"`
}

type Project struct {
	Name        string     `json:"project_name"`
	Role        string     `json:"role"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Skills      []string   `json:"skills"`
	Description string     `json:"description"`
}

type Education struct {
	School    string     `json:"school"`
	Degree    string     `json:"degree"`
	Major     string     `json:"major"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}
