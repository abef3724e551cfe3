package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"talentmatch/internal/billing"
	"talentmatch/internal/llm"
	"talentmatch/internal/search"
	"talentmatch/internal/storage"
)

// estimateTokens is the coarse pre-check heuristic: roughly four
// characters per token, plus prompt scaffolding.
func estimateTokens(text string) int {
	return len(text)/4 + 500
}

// QuickSearchHandler runs lexical-only search
// @Summary Quick lexical search
// @Description Full-text search over the candidate index. No LLM involved, not billed.
// @Tags search
// @Produce json
// @Param q query string true "Search terms"
// @Param location query string false "Location filter"
// @Param min_years query int false "Minimum years of experience"
// @Param limit query int false "Result cap"
// @Success 200 {array} search.RankedCandidate
// @Router /search [get]
func (a *API) QuickSearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		a.writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	filters := storage.Filters{
		Location: r.URL.Query().Get("location"),
		MinYears: queryInt(r, "min_years", 0),
	}
	results, err := a.ranker.QuickSearch(r.Context(), userID(r), q, filters, queryInt(r, "limit", 0))
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, results)
}

type matchRequest struct {
	JobDescription string          `json:"job_description"`
	Text           string          `json:"text"`
	RequiredSkills []string        `json:"required_skills"`
	Filters        storage.Filters `json:"filters"`
	Limit          int             `json:"limit"`
	RequestID      string          `json:"request_id"`
}

type matchResponse struct {
	Requirements *llm.JobRequirements     `json:"requirements,omitempty"`
	Results      []search.RankedCandidate `json:"results"`
	Billing      *storage.ChargeResult    `json:"billing,omitempty"`
}

// MatchHandler runs the full hybrid matching pipeline
// @Summary Match candidates against a job description
// @Description Parses the JD, runs hybrid recall and ranking, and meters the LLM usage against the caller's quota and balance
// @Tags search
// @Accept json
// @Produce json
// @Param request body matchRequest true "Match request"
// @Success 200 {object} matchResponse
// @Failure 402 {object} map[string]string
// @Router /match [post]
func (a *API) MatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" && strings.TrimSpace(req.Text) == "" {
		a.writeError(w, http.StatusBadRequest, "job_description or text is required")
		return
	}

	if _, err := a.ledger.EnsureAccount(r.Context(), uid, ""); err != nil {
		a.mapError(w, err)
		return
	}

	query := search.Query{
		Text:           req.Text,
		RequiredSkills: req.RequiredSkills,
		Filters:        req.Filters,
		Limit:          req.Limit,
	}

	var requirements *llm.JobRequirements
	var usage llm.TokenUsage
	if req.JobDescription != "" {
		// Reject before spending tokens when the account clearly
		// cannot cover the call.
		estimate := billing.Cost(a.llm.Model(), estimateTokens(req.JobDescription), 500)
		if err := a.ledger.CheckAffordable(r.Context(), uid, estimate); err != nil {
			a.mapError(w, err)
			return
		}

		parsed, u, err := a.llm.ParseJobDescription(r.Context(), req.JobDescription)
		if err != nil {
			a.mapError(w, fmt.Errorf("parse job description: %w", err))
			return
		}
		requirements = parsed
		usage = u

		query.Text = strings.TrimSpace(parsed.Title + " " + parsed.Summary)
		if len(query.RequiredSkills) == 0 {
			query.RequiredSkills = parsed.RequiredSkills
		}
		if query.Filters.Location == "" {
			query.Filters.Location = parsed.Location
		}
		if query.Filters.MinYears == 0 {
			query.Filters.MinYears = parsed.MinYears
		}
	}

	results, err := a.ranker.Search(r.Context(), uid, query)
	if err != nil {
		a.mapError(w, err)
		return
	}

	resp := matchResponse{Requirements: requirements, Results: results}
	if usage.PromptTokens > 0 {
		charge, err := a.ledger.RecordUsage(r.Context(), billing.Usage{
			UserID:           uid,
			RequestID:        req.RequestID,
			Operation:        "match",
			Model:            a.llm.Model(),
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
		})
		if err != nil {
			a.mapError(w, err)
			return
		}
		resp.Billing = charge
	}

	a.writeJSON(w, http.StatusOK, resp)
}

type explainRequest struct {
	CandidateID    int64  `json:"candidate_id"`
	JobDescription string `json:"job_description"`
	RequestID      string `json:"request_id"`
}

// ExplainHandler produces a per-candidate match report
// @Summary Explain one candidate against a job description
// @Description Generates advantages, risks and interview advice. Billed per LLM usage.
// @Tags search
// @Accept json
// @Produce json
// @Param request body explainRequest true "Explain request"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /match/explain [post]
func (a *API) ExplainHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)

	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CandidateID <= 0 || strings.TrimSpace(req.JobDescription) == "" {
		a.writeError(w, http.StatusBadRequest, "candidate_id and job_description are required")
		return
	}

	candidate, err := a.db.GetCandidate(r.Context(), uid, req.CandidateID)
	if err != nil {
		a.mapError(w, err)
		return
	}
	experiences, err := a.db.GetExperiences(r.Context(), candidate.ID)
	if err != nil {
		a.mapError(w, err)
		return
	}

	if _, err := a.ledger.EnsureAccount(r.Context(), uid, ""); err != nil {
		a.mapError(w, err)
		return
	}
	profile := candidateProfile(candidate, experiences)
	estimate := billing.Cost(a.llm.Model(), estimateTokens(req.JobDescription+profile), 800)
	if err := a.ledger.CheckAffordable(r.Context(), uid, estimate); err != nil {
		a.mapError(w, err)
		return
	}

	explanation, usage, err := a.llm.Explain(r.Context(), req.JobDescription, profile)
	if err != nil {
		a.mapError(w, err)
		return
	}

	charge, err := a.ledger.RecordUsage(r.Context(), billing.Usage{
		UserID:           uid,
		RequestID:        req.RequestID,
		Operation:        "explain",
		Model:            a.llm.Model(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	})
	if err != nil {
		a.mapError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"candidate_id": candidate.ID,
		"explanation":  explanation,
		"billing":      charge,
	})
}

func candidateProfile(c *storage.Candidate, experiences []storage.ExperienceRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	if c.CurrentTitle != "" {
		fmt.Fprintf(&b, "Current: %s at %s\n", c.CurrentTitle, c.CurrentCompany)
	}
	if c.YearsExp > 0 {
		fmt.Fprintf(&b, "Experience: %d years\n", c.YearsExp)
	}
	if c.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", c.Location)
	}
	if len(c.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(c.Skills, ", "))
	}
	for _, e := range experiences {
		fmt.Fprintf(&b, "- %s, %s", e.Title, e.Company)
		if e.Description != "" {
			fmt.Fprintf(&b, ": %s", e.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ReindexHandler rebuilds index rows for the tenant's candidates
// @Summary Rebuild the search index
// @Description Recomputes the index row (and embedding, when available) for every active candidate of the caller
// @Tags index
// @Produce json
// @Success 200 {object} map[string]int
// @Router /index/rebuild [post]
func (a *API) ReindexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)

	ids, err := a.db.ListActiveCandidateIDs(r.Context(), uid)
	if err != nil {
		a.mapError(w, err)
		return
	}

	rebuilt, failed := 0, 0
	for _, id := range ids {
		candidate, err := a.db.GetCandidate(r.Context(), uid, id)
		if err != nil {
			failed++
			continue
		}
		if err := a.builder.Rebuild(r.Context(), candidate); err != nil {
			a.log.Warn("reindex failed", zap.Int64("candidate_id", id), zap.Error(err))
			failed++
			continue
		}
		rebuilt++
	}

	a.writeJSON(w, http.StatusOK, map[string]int{"rebuilt": rebuilt, "failed": failed})
}
