package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"talentmatch/internal/cv"
)

// resumeDTO mirrors cv.ParsedResume with string dates, which is what
// models reliably produce.
type resumeDTO struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Location       string   `json:"location"`
	YearsExp       int      `json:"years_experience"`
	CurrentTitle   string   `json:"current_title"`
	CurrentCompany string   `json:"current_company"`
	Skills         []string `json:"skills"`
	EducationLevel string   `json:"education_level"`
	Experiences    []struct {
		Company     string   `json:"company"`
		Title       string   `json:"title"`
		StartDate   string   `json:"start_date"`
		EndDate     string   `json:"end_date"`
		Skills      []string `json:"skills"`
		Description string   `json:"description"`
	} `json:"experiences"`
	Projects []struct {
		Name        string   `json:"project_name"`
		Role        string   `json:"role"`
		StartDate   string   `json:"start_date"`
		EndDate     string   `json:"end_date"`
		Skills      []string `json:"skills"`
		Description string   `json:"description"`
	} `json:"projects"`
	Education []struct {
		School    string `json:"school"`
		Degree    string `json:"degree"`
		Major     string `json:"major"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"education"`
}

const resumeSystemPrompt = "You are a resume parser. Return only valid JSON."

const resumePromptTemplate = `Extract structured information from this resume.

Resume text:
"""
%s
"""

Return ONLY valid JSON (no markdown, no explanation) with this exact structure:
{
  "name": "Full name",
  "email": "email or empty string",
  "phone": "phone or empty string",
  "location": "city or empty string",
  "years_experience": 0,
  "current_title": "Most recent job title",
  "current_company": "Most recent employer",
  "skills": ["Canonical skill names"],
  "education_level": "highest of: high_school|associate|bachelor|master|phd or empty string",
  "experiences": [
    {"company": "", "title": "", "start_date": "YYYY-MM-DD or empty", "end_date": "YYYY-MM-DD, empty if current", "skills": [], "description": ""}
  ],
  "projects": [
    {"project_name": "", "role": "", "start_date": "", "end_date": "", "skills": [], "description": ""}
  ],
  "education": [
    {"school": "", "degree": "", "major": "", "start_date": "", "end_date": ""}
  ]
}

Important:
- Normalize skill names (e.g., "K8s" -> "Kubernetes", "JS" -> "JavaScript")
- Attribute skills to the experience or project where they were used
- Use empty string for a missing date, never null
- An empty end_date means the engagement is ongoing`

// ParseResume extracts structured candidate fields from plain resume
// text.
func (s *Service) ParseResume(ctx context.Context, text string) (*cv.ParsedResume, TokenUsage, error) {
	raw, usage, err := s.completeJSON(ctx, resumeSystemPrompt, fmt.Sprintf(resumePromptTemplate, text))
	if err != nil {
		return nil, usage, err
	}

	var dto resumeDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, usage, fmt.Errorf("parse resume response: %w", err)
	}

	parsed := &cv.ParsedResume{
		Name:           dto.Name,
		Email:          dto.Email,
		Phone:          dto.Phone,
		Location:       dto.Location,
		YearsExp:       dto.YearsExp,
		CurrentTitle:   dto.CurrentTitle,
		CurrentCompany: dto.CurrentCompany,
		Skills:         dto.Skills,
		EducationLevel: dto.EducationLevel,
		FullText:       text,
	}
	for _, e := range dto.Experiences {
		start, end := datesOf(e.StartDate, e.EndDate)
		parsed.Experiences = append(parsed.Experiences, cv.Experience{
			Company: e.Company, Title: e.Title,
			StartDate: start, EndDate: end,
			Skills: e.Skills, Description: e.Description,
		})
	}
	for _, p := range dto.Projects {
		start, end := datesOf(p.StartDate, p.EndDate)
		parsed.Projects = append(parsed.Projects, cv.Project{
			Name: p.Name, Role: p.Role,
			StartDate: start, EndDate: end,
			Skills: p.Skills, Description: p.Description,
		})
	}
	for _, ed := range dto.Education {
		start, end := datesOf(ed.StartDate, ed.EndDate)
		parsed.Education = append(parsed.Education, cv.Education{
			School: ed.School, Degree: ed.Degree, Major: ed.Major,
			StartDate: start, EndDate: end,
		})
	}
	return parsed, usage, nil
}

// JobRequirements is the structured form of a job description.
type JobRequirements struct {
	Title          string   `json:"title"`
	RequiredSkills []string `json:"required_skills"`
	NiceToHave     []string `json:"nice_to_have"`
	Location       string   `json:"location"`
	MinYears       int      `json:"min_years"`
	Summary        string   `json:"summary"`
}

const jdPromptTemplate = `Extract hiring requirements from this job description.

Job description:
"""
%s
"""

Return ONLY valid JSON:
{
  "title": "Role title",
  "required_skills": ["Hard requirements, canonical names"],
  "nice_to_have": ["Optional skills"],
  "location": "required location or empty string",
  "min_years": 0,
  "summary": "One-sentence summary of the ideal candidate"
}`

// ParseJobDescription turns free-form JD text into structured
// requirements the ranker can use.
func (s *Service) ParseJobDescription(ctx context.Context, text string) (*JobRequirements, TokenUsage, error) {
	raw, usage, err := s.completeJSON(ctx,
		"You are a recruiting assistant. Return only valid JSON.",
		fmt.Sprintf(jdPromptTemplate, text))
	if err != nil {
		return nil, usage, err
	}

	var req JobRequirements
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, usage, fmt.Errorf("parse jd response: %w", err)
	}
	return &req, usage, nil
}

// Explanation is the human-readable assessment of one candidate against
// one job description.
type Explanation struct {
	Advantages []string `json:"advantages"`
	Risks      []string `json:"risks"`
	Advice     []string `json:"interview_advice"`
}

const explainPromptTemplate = `Assess this candidate against the job requirements.

Job requirements:
"""
%s
"""

Candidate profile:
"""
%s
"""

Return ONLY valid JSON:
{
  "advantages": ["Concrete strengths relative to the requirements"],
  "risks": ["Gaps or concerns"],
  "interview_advice": ["Specific questions or areas to probe"]
}`

// Explain produces advantages, risks and interview advice for a single
// candidate/JD pair.
func (s *Service) Explain(ctx context.Context, jobText, candidateProfile string) (*Explanation, TokenUsage, error) {
	raw, usage, err := s.completeJSON(ctx,
		"You are a technical recruiter. Return only valid JSON.",
		fmt.Sprintf(explainPromptTemplate, jobText, candidateProfile))
	if err != nil {
		return nil, usage, err
	}

	var exp Explanation
	if err := json.Unmarshal([]byte(raw), &exp); err != nil {
		return nil, usage, fmt.Errorf("parse explanation response: %w", err)
	}
	return &exp, usage, nil
}
