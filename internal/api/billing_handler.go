package api

import (
	"encoding/json"
	"net/http"
)

// BillingSummaryHandler returns the account summary
// @Summary Billing summary
// @Description Balance, lifetime free quota and the derived free remainder
// @Tags billing
// @Produce json
// @Success 200 {object} billing.Summary
// @Router /billing/summary [get]
func (a *API) BillingSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)
	if _, err := a.ledger.EnsureAccount(r.Context(), uid, ""); err != nil {
		a.mapError(w, err)
		return
	}
	summary, err := a.ledger.Account(r.Context(), uid)
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, summary)
}

// UsageHistoryHandler lists recent usage records
// @Summary Usage history
// @Tags billing
// @Produce json
// @Param limit query int false "Row cap (default 50)"
// @Success 200 {array} storage.UsageRecord
// @Router /billing/usage [get]
func (a *API) UsageHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := a.ledger.UsageHistory(r.Context(), userID(r), queryInt(r, "limit", 50))
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, records)
}

// TransactionsHandler lists recent balance mutations
// @Summary Transaction history
// @Tags billing
// @Produce json
// @Param limit query int false "Row cap (default 50)"
// @Success 200 {array} storage.Transaction
// @Router /billing/transactions [get]
func (a *API) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	transactions, err := a.ledger.TransactionHistory(r.Context(), userID(r), queryInt(r, "limit", 50))
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, transactions)
}

type rechargeRequest struct {
	Amount      float64 `json:"amount"`
	ReferenceID string  `json:"reference_id"`
	Remark      string  `json:"remark"`
}

// RechargeHandler tops up the account balance
// @Summary Recharge balance
// @Tags billing
// @Accept json
// @Produce json
// @Param request body rechargeRequest true "Recharge request"
// @Success 200 {object} storage.User
// @Failure 400 {object} map[string]string
// @Router /billing/recharge [post]
func (a *API) RechargeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)

	var req rechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		a.writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if _, err := a.ledger.EnsureAccount(r.Context(), uid, ""); err != nil {
		a.mapError(w, err)
		return
	}
	user, err := a.ledger.Recharge(r.Context(), uid, req.Amount, req.ReferenceID, req.Remark)
	if err != nil {
		a.mapError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, user)
}
