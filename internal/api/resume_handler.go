package api

import (
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"talentmatch/internal/billing"
)

// UploadResumeHandler handles resume file uploads and ingestion
// @Summary Upload and ingest a resume
// @Description Upload a resume file (PDF/DOCX/TXT), extract and parse it, and create or merge the candidate
// @Tags resumes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resume file"
// @Param source formData string false "Ingestion source (default: upload)"
// @Param request_id formData string false "Idempotency key for billing"
// @Success 200 {object} ingest.Result
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /resumes/upload [post]
func (a *API) UploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		a.writeError(w, http.StatusBadRequest, "file too large or invalid (max 10MB)")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	switch ext {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt":
	default:
		a.writeError(w, http.StatusBadRequest, "invalid file type (supported: PDF, DOCX, DOC, RTF, ODT, TXT)")
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = "upload"
	}

	if _, err := a.ledger.EnsureAccount(r.Context(), uid, ""); err != nil {
		a.mapError(w, err)
		return
	}

	doc, err := a.docs.ExtractFile(header.Filename, file)
	if err != nil {
		a.mapError(w, err)
		return
	}

	result, err := a.ingester.Ingest(r.Context(), uid, doc, source)
	if err != nil {
		a.mapError(w, err)
		return
	}

	if !result.Duplicate && result.Usage.PromptTokens > 0 {
		if _, err := a.ledger.RecordUsage(r.Context(), billing.Usage{
			UserID:           uid,
			RequestID:        r.FormValue("request_id"),
			Operation:        "parse",
			Model:            a.llm.Model(),
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		}); err != nil {
			a.log.Error("charge for resume parse failed", zap.Int64("user_id", uid), zap.Error(err))
		}
	}

	a.writeJSON(w, http.StatusOK, result)
}
