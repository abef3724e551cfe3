package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"talentmatch/internal/storage"
)

type fakeLedgerStore struct {
	user       *storage.User
	totalUsage float64
	charges    map[string]*storage.ChargeResult
	lastParams storage.ChargeParams
}

func newFakeLedgerStore(balance, freeQuota, totalUsage float64) *fakeLedgerStore {
	return &fakeLedgerStore{
		user:       &storage.User{ID: 1, Balance: balance, FreeQuota: freeQuota},
		totalUsage: totalUsage,
		charges:    map[string]*storage.ChargeResult{},
	}
}

func (f *fakeLedgerStore) GetOrCreateUser(_ context.Context, _ int64, _ string, _ float64) (*storage.User, error) {
	return f.user, nil
}

func (f *fakeLedgerStore) GetUser(context.Context, int64) (*storage.User, error) {
	return f.user, nil
}

func (f *fakeLedgerStore) TotalUsage(context.Context, int64) (float64, error) {
	return f.totalUsage, nil
}

func (f *fakeLedgerStore) Charge(_ context.Context, p storage.ChargeParams) (*storage.ChargeResult, error) {
	if prior, ok := f.charges[p.RequestID]; ok {
		dup := *prior
		dup.AlreadyProcessed = true
		return &dup, nil
	}
	f.lastParams = p
	fromFree, fromBalance := storage.SplitCost(f.user.FreeQuota, f.totalUsage, p.Cost)
	if fromBalance > f.user.Balance {
		return nil, storage.ErrInsufficientBalance
	}
	f.user.Balance -= fromBalance
	f.totalUsage += p.Cost
	result := &storage.ChargeResult{
		Record:       storage.UsageRecord{UserID: p.UserID, RequestID: p.RequestID, Cost: p.Cost},
		FromFree:     fromFree,
		FromBalance:  fromBalance,
		BalanceAfter: f.user.Balance,
	}
	f.charges[p.RequestID] = result
	return result, nil
}

func (f *fakeLedgerStore) AddBalance(_ context.Context, _ int64, amount float64, _, _ string) (*storage.User, error) {
	f.user.Balance += amount
	return f.user, nil
}

func (f *fakeLedgerStore) ListUsage(context.Context, int64, int) ([]storage.UsageRecord, error) {
	return nil, nil
}

func (f *fakeLedgerStore) ListTransactions(context.Context, int64, int) ([]storage.Transaction, error) {
	return nil, nil
}

func newTestLedger(t *testing.T, store ledgerStore) *Ledger {
	return NewLedger(store, 1.0, zaptest.NewLogger(t))
}

func TestRecordUsagePricesAndCharges(t *testing.T) {
	store := newFakeLedgerStore(5.0, 1.0, 0.9)
	l := newTestLedger(t, store)

	res, err := l.RecordUsage(context.Background(), Usage{
		UserID:           1,
		RequestID:        "req-1",
		Operation:        "match",
		Model:            "qwen3-max",
		PromptTokens:     50_000,
		CompletionTokens: 5_000,
	})
	require.NoError(t, err)

	// 50k prompt tokens land in the second tier.
	wantCost := 50.0*0.0064 + 5.0*0.0256
	assert.InDelta(t, wantCost, store.lastParams.Cost, 1e-9)
	assert.False(t, res.AlreadyProcessed)
	assert.InDelta(t, 0.1, res.FromFree, 1e-9, "the last slice of free quota goes first")
	assert.InDelta(t, wantCost-0.1, res.FromBalance, 1e-9)
	assert.InDelta(t, 5.0-(wantCost-0.1), res.BalanceAfter, 1e-9)
}

func TestRecordUsageGeneratesRequestID(t *testing.T) {
	store := newFakeLedgerStore(5.0, 1.0, 0)
	l := newTestLedger(t, store)

	_, err := l.RecordUsage(context.Background(), Usage{UserID: 1, Operation: "match", Model: "qwen3-max"})
	require.NoError(t, err)
	assert.NotEmpty(t, store.lastParams.RequestID)
}

func TestRecordUsageReplayReturnsOriginal(t *testing.T) {
	store := newFakeLedgerStore(5.0, 1.0, 0.9)
	l := newTestLedger(t, store)

	u := Usage{UserID: 1, RequestID: "req-dup", Operation: "match", Model: "qwen3-max", PromptTokens: 1000}
	first, err := l.RecordUsage(context.Background(), u)
	require.NoError(t, err)

	u.PromptTokens = 999_999 // a retry with different token counts must not re-charge
	second, err := l.RecordUsage(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.FromFree, second.FromFree)
	assert.Equal(t, first.FromBalance, second.FromBalance)
	assert.Equal(t, first.BalanceAfter, second.BalanceAfter)
}

func TestCheckAffordable(t *testing.T) {
	l := newTestLedger(t, newFakeLedgerStore(0.05, 1.0, 0.9))

	// free remaining 0.1 + balance 0.05 covers 0.12
	require.NoError(t, l.CheckAffordable(context.Background(), 1, 0.12))

	err := l.CheckAffordable(context.Background(), 1, 0.2)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)
}

func TestAccountDerivesFreeRemaining(t *testing.T) {
	l := newTestLedger(t, newFakeLedgerStore(2.5, 1.0, 1.7))

	s, err := l.Account(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.FreeRemaining, "overdrawn quota clamps to zero")
	assert.Equal(t, 1.7, s.TotalUsage)
	assert.Equal(t, 2.5, s.Balance)
}
