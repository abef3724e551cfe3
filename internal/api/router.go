package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation - must be registered first
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Health check (for Railway, k8s, etc.)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	authed := http.NewServeMux()

	// Resume intake
	authed.HandleFunc("/api/resumes/upload", a.UploadResumeHandler)

	// Candidate management
	authed.HandleFunc("/api/candidates", a.ListCandidatesHandler)
	authed.HandleFunc("/api/candidates/get", a.GetCandidateHandler)
	authed.HandleFunc("/api/candidates/delete", a.DeleteCandidateHandler)
	authed.HandleFunc("/api/candidates/lineage", a.LineageHandler)

	// Search & matching
	authed.HandleFunc("/api/search", a.QuickSearchHandler)
	authed.HandleFunc("/api/match", a.MatchHandler)
	authed.HandleFunc("/api/match/explain", a.ExplainHandler)

	// Index maintenance
	authed.HandleFunc("/api/index/rebuild", a.ReindexHandler)

	// Billing
	authed.HandleFunc("/api/billing/summary", a.BillingSummaryHandler)
	authed.HandleFunc("/api/billing/usage", a.UsageHistoryHandler)
	authed.HandleFunc("/api/billing/transactions", a.TransactionsHandler)
	authed.HandleFunc("/api/billing/recharge", a.RechargeHandler)

	mux.Handle("/api/", a.authMiddleware(authed))

	return a.logMiddleware(mux)
}
