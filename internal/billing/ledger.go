package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentmatch/internal/storage"
)

type ledgerStore interface {
	GetOrCreateUser(ctx context.Context, id int64, name string, defaultFreeQuota float64) (*storage.User, error)
	GetUser(ctx context.Context, id int64) (*storage.User, error)
	TotalUsage(ctx context.Context, userID int64) (float64, error)
	Charge(ctx context.Context, p storage.ChargeParams) (*storage.ChargeResult, error)
	AddBalance(ctx context.Context, userID int64, amount float64, referenceID, remark string) (*storage.User, error)
	ListUsage(ctx context.Context, userID int64, limit int) ([]storage.UsageRecord, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]storage.Transaction, error)
}

// Ledger is the metering service. It prices completed LLM calls,
// pre-checks affordability before expensive work starts, and delegates
// the atomic deduction to the storage layer.
type Ledger struct {
	store            ledgerStore
	defaultFreeQuota float64
	log              *zap.Logger
}

func NewLedger(store ledgerStore, defaultFreeQuota float64, log *zap.Logger) *Ledger {
	return &Ledger{store: store, defaultFreeQuota: defaultFreeQuota, log: log}
}

// Usage describes one completed LLM call to meter.
type Usage struct {
	UserID           int64
	RequestID        string // idempotency key; generated when empty
	Operation        string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Summary is the account view the billing endpoints return.
type Summary struct {
	UserID        int64   `json:"user_id"`
	Balance       float64 `json:"balance"`
	FreeQuota     float64 `json:"free_quota"`
	FreeRemaining float64 `json:"free_remaining"`
	TotalUsage    float64 `json:"total_usage"`
}

// EnsureAccount creates the billing account on first sight, granting
// the default free quota.
func (l *Ledger) EnsureAccount(ctx context.Context, userID int64, name string) (*storage.User, error) {
	return l.store.GetOrCreateUser(ctx, userID, name, l.defaultFreeQuota)
}

// CheckAffordable verifies that free quota plus balance covers the
// estimated cost, before any tokens are spent. The actual deduction
// still revalidates inside its transaction; this is the cheap early
// rejection.
func (l *Ledger) CheckAffordable(ctx context.Context, userID int64, estimatedCost float64) error {
	summary, err := l.Account(ctx, userID)
	if err != nil {
		return err
	}
	if summary.FreeRemaining+summary.Balance < estimatedCost {
		return fmt.Errorf("estimated cost %.6f exceeds free %.6f + balance %.6f: %w",
			estimatedCost, summary.FreeRemaining, summary.Balance, storage.ErrInsufficientBalance)
	}
	return nil
}

// RecordUsage prices the call and applies the charge. Replays of the
// same RequestID return the original result untouched.
func (l *Ledger) RecordUsage(ctx context.Context, u Usage) (*storage.ChargeResult, error) {
	if u.RequestID == "" {
		u.RequestID = uuid.NewString()
	}
	cost := Cost(u.Model, u.PromptTokens, u.CompletionTokens)

	result, err := l.store.Charge(ctx, storage.ChargeParams{
		UserID:           u.UserID,
		RequestID:        u.RequestID,
		Operation:        u.Operation,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		Cost:             cost,
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyProcessed {
		l.log.Info("duplicate usage request ignored",
			zap.Int64("user_id", u.UserID), zap.String("request_id", u.RequestID))
		return result, nil
	}
	l.log.Info("usage charged",
		zap.Int64("user_id", u.UserID),
		zap.String("request_id", u.RequestID),
		zap.String("operation", u.Operation),
		zap.String("model", u.Model),
		zap.Float64("cost", cost),
		zap.Float64("from_free", result.FromFree),
		zap.Float64("from_balance", result.FromBalance),
		zap.Float64("balance_after", result.BalanceAfter))
	return result, nil
}

// Account returns the summary with the derived free remainder.
func (l *Ledger) Account(ctx context.Context, userID int64) (*Summary, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := l.store.TotalUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	freeRemaining := user.FreeQuota - total
	if freeRemaining < 0 {
		freeRemaining = 0
	}
	return &Summary{
		UserID:        user.ID,
		Balance:       user.Balance,
		FreeQuota:     user.FreeQuota,
		FreeRemaining: freeRemaining,
		TotalUsage:    total,
	}, nil
}

// Recharge tops up the balance and writes the recharge ledger entry.
func (l *Ledger) Recharge(ctx context.Context, userID int64, amount float64, referenceID, remark string) (*storage.User, error) {
	user, err := l.store.AddBalance(ctx, userID, amount, referenceID, remark)
	if err != nil {
		return nil, err
	}
	l.log.Info("balance recharged",
		zap.Int64("user_id", userID), zap.Float64("amount", amount), zap.Float64("balance", user.Balance))
	return user, nil
}

func (l *Ledger) UsageHistory(ctx context.Context, userID int64, limit int) ([]storage.UsageRecord, error) {
	return l.store.ListUsage(ctx, userID, limit)
}

func (l *Ledger) TransactionHistory(ctx context.Context, userID int64, limit int) ([]storage.Transaction, error) {
	return l.store.ListTransactions(ctx, userID, limit)
}
