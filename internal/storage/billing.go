package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ChargeParams describes one billable operation to record and deduct.
type ChargeParams struct {
	UserID           int64
	RequestID        string
	Operation        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// ChargeResult reports how a successful (or previously applied) charge
// was split between free quota and balance.
type ChargeResult struct {
	Record           UsageRecord `json:"record"`
	FromFree         float64     `json:"deducted_from_free"`
	FromBalance      float64     `json:"deducted_from_balance"`
	BalanceAfter     float64     `json:"balance_after"`
	FreeRemaining    float64     `json:"free_remaining"`
	AlreadyProcessed bool        `json:"already_processed"`
}

// SplitCost divides a cost between the remaining free quota and the
// account balance. freeRemaining = max(0, freeQuota - totalUsage): the
// quota is a lifetime allowance consumed before any money.
func SplitCost(freeQuota, totalUsage, cost float64) (fromFree, fromBalance float64) {
	freeRemaining := freeQuota - totalUsage
	if freeRemaining < 0 {
		freeRemaining = 0
	}
	if cost <= freeRemaining {
		return cost, 0
	}
	return freeRemaining, cost - freeRemaining
}

// GetOrCreateUser loads the billing account, creating it with the
// default free quota (and a free_grant ledger entry) on first sight.
func (db *DB) GetOrCreateUser(ctx context.Context, id int64, name string, defaultFreeQuota float64) (*User, error) {
	u, err := db.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u = &User{ID: id, Name: name, FreeQuota: defaultFreeQuota}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (id, name, balance, free_quota) VALUES ($1, $2, 0, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		 RETURNING balance, free_quota, created_at, updated_at`,
		id, name, defaultFreeQuota,
	).Scan(&u.Balance, &u.FreeQuota, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if defaultFreeQuota > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (user_id, type, amount, balance_after, remark)
			 VALUES ($1, $2, $3, 0, 'signup free quota')`,
			id, TxFreeGrant, defaultFreeQuota)
		if err != nil {
			return nil, err
		}
	}

	return u, tx.Commit()
}

func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := db.connection.QueryRowContext(ctx,
		`SELECT id, COALESCE(name, ''), balance, free_quota, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Balance, &u.FreeQuota, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// TotalUsage sums the cost of every recorded operation for the user.
func (db *DB) TotalUsage(ctx context.Context, userID int64) (float64, error) {
	var total float64
	err := db.connection.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0) FROM usage_records WHERE user_id = $1`, userID,
	).Scan(&total)
	return total, err
}

// Charge applies one billable operation atomically: the user row is
// locked, free quota is derived from recorded usage, the UsageRecord and
// Transaction rows are appended and the balance decremented, all in one
// transaction. A concurrent charge for the same user waits on the row
// lock, and the conditional decrement guards the balance even if the
// lock is ever bypassed.
//
// Retries with an already-recorded RequestID roll everything back and
// return the original record with AlreadyProcessed set.
func (db *DB) Charge(ctx context.Context, p ChargeParams) (*ChargeResult, error) {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance, freeQuota float64
	err = tx.QueryRowContext(ctx,
		`SELECT balance, free_quota FROM users WHERE id = $1 FOR UPDATE`, p.UserID,
	).Scan(&balance, &freeQuota)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var totalUsage float64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0) FROM usage_records WHERE user_id = $1`, p.UserID,
	).Scan(&totalUsage); err != nil {
		return nil, err
	}

	fromFree, fromBalance := SplitCost(freeQuota, totalUsage, p.Cost)
	if fromBalance > balance {
		return nil, fmt.Errorf("need %.6f from balance %.6f: %w", fromBalance, balance, ErrInsufficientBalance)
	}

	record := UsageRecord{
		UserID:           p.UserID,
		RequestID:        p.RequestID,
		Operation:        p.Operation,
		Model:            p.Model,
		PromptTokens:     p.PromptTokens,
		CompletionTokens: p.CompletionTokens,
		Cost:             p.Cost,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO usage_records (user_id, request_id, operation, model, prompt_tokens, completion_tokens, cost)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (request_id) DO NOTHING
		 RETURNING id, created_at`,
		p.UserID, p.RequestID, p.Operation, p.Model, p.PromptTokens, p.CompletionTokens, p.Cost,
	).Scan(&record.ID, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Idempotent retry: surface the first successful charge.
		return db.existingCharge(ctx, p.RequestID)
	}
	if err != nil {
		return nil, err
	}

	balanceAfter := balance
	if fromBalance > 0 {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = balance - $1, updated_at = now()
			 WHERE id = $2 AND balance >= $1`, fromBalance, p.UserID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrInsufficientBalance
		}
		balanceAfter = balance - fromBalance
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, balance_after, reference_id, remark)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.UserID, TxDeduct, -p.Cost, balanceAfter, p.RequestID, p.Operation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	freeRemaining := freeQuota - totalUsage - fromFree
	if freeRemaining < 0 {
		freeRemaining = 0
	}
	return &ChargeResult{
		Record:        record,
		FromFree:      fromFree,
		FromBalance:   fromBalance,
		BalanceAfter:  balanceAfter,
		FreeRemaining: freeRemaining,
	}, nil
}

func (db *DB) existingCharge(ctx context.Context, requestID string) (*ChargeResult, error) {
	r := UsageRecord{}
	err := db.connection.QueryRowContext(ctx,
		`SELECT id, user_id, request_id, operation, model, prompt_tokens, completion_tokens, cost, created_at
		 FROM usage_records WHERE request_id = $1`, requestID,
	).Scan(&r.ID, &r.UserID, &r.RequestID, &r.Operation, &r.Model,
		&r.PromptTokens, &r.CompletionTokens, &r.Cost, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicateRequest
	}
	if err != nil {
		return nil, err
	}
	u, err := db.GetUser(ctx, r.UserID)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{
		Record:           r,
		BalanceAfter:     u.Balance,
		AlreadyProcessed: true,
	}, nil
}

// AddBalance credits the account and appends the recharge entry.
func (db *DB) AddBalance(ctx context.Context, userID int64, amount float64, referenceID, remark string) (*User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("recharge amount must be positive")
	}

	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u := &User{ID: userID}
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = now() WHERE id = $2
		 RETURNING COALESCE(name, ''), balance, free_quota, created_at, updated_at`,
		amount, userID,
	).Scan(&u.Name, &u.Balance, &u.FreeQuota, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, balance_after, reference_id, remark)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, TxRecharge, amount, u.Balance, referenceID, remark)
	if err != nil {
		return nil, err
	}

	return u, tx.Commit()
}

func (db *DB) ListUsage(ctx context.Context, userID int64, limit int) ([]UsageRecord, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, user_id, request_id, operation, model, prompt_tokens, completion_tokens, cost, created_at
		 FROM usage_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var r UsageRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.RequestID, &r.Operation, &r.Model,
			&r.PromptTokens, &r.CompletionTokens, &r.Cost, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) ListTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	rows, err := db.connection.QueryContext(ctx,
		`SELECT id, user_id, type, amount, balance_after, COALESCE(reference_id, ''), COALESCE(remark, ''), created_at
		 FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter,
			&t.ReferenceID, &t.Remark, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
