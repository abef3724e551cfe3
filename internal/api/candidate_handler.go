package api

import (
	"net/http"
	"strconv"
)

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryID(r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id > 0
}

// ListCandidatesHandler lists the tenant's candidates
// @Summary List candidates
// @Tags candidates
// @Produce json
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Success 200 {array} storage.Candidate
// @Router /candidates [get]
func (a *API) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	candidates, err := a.db.ListCandidates(r.Context(), userID(r), limit, queryInt(r, "offset", 0))
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, candidates)
}

// GetCandidateHandler returns one candidate with resumes and skill recency
// @Summary Get candidate detail
// @Tags candidates
// @Produce json
// @Param id query int true "Candidate ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /candidates/get [get]
func (a *API) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		a.writeError(w, http.StatusBadRequest, "missing candidate id")
		return
	}

	candidate, err := a.db.GetCandidate(r.Context(), userID(r), id)
	if err != nil {
		a.mapError(w, err)
		return
	}
	resumes, err := a.db.ListResumes(r.Context(), id)
	if err != nil {
		a.mapError(w, err)
		return
	}
	experiences, err := a.db.GetExperiences(r.Context(), id)
	if err != nil {
		a.mapError(w, err)
		return
	}
	recency, err := a.db.ListSkillRecency(r.Context(), id)
	if err != nil {
		a.mapError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"candidate":     candidate,
		"resumes":       resumes,
		"experiences":   experiences,
		"skill_recency": recency,
	})
}

// DeleteCandidateHandler soft-deletes a candidate
// @Summary Delete candidate
// @Description Marks the candidate deleted and drops them from the search index. History is retained.
// @Tags candidates
// @Produce json
// @Param id query int true "Candidate ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /candidates/delete [post]
func (a *API) DeleteCandidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		a.writeError(w, http.StatusBadRequest, "missing candidate id")
		return
	}
	if err := a.db.SoftDeleteCandidate(r.Context(), userID(r), id); err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// LineageHandler returns the merge audit trail for a candidate
// @Summary Merge lineage
// @Tags candidates
// @Produce json
// @Param id query int true "Candidate ID"
// @Success 200 {array} storage.MergeLineage
// @Router /candidates/lineage [get]
func (a *API) LineageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		a.writeError(w, http.StatusBadRequest, "missing candidate id")
		return
	}
	// Ownership check before exposing history.
	if _, err := a.db.GetCandidate(r.Context(), userID(r), id); err != nil {
		a.mapError(w, err)
		return
	}
	lineage, err := a.db.ListLineage(r.Context(), id)
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, lineage)
}
