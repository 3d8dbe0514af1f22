package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Category string

const (
	CategorySale    Category = "SALE"
	CategoryMint    Category = "MINT"
	CategoryBurn    Category = "BURN"
	CategoryListing Category = "LISTING"
	CategoryCage    Category = "CAGE"
)

// HistoryEntry is the audit record of one sent notification.
type HistoryEntry struct {
	Category     Category
	TokenID      string
	Counterparty string
	Amount       string
	Symbol       string
	SentAt       time.Time
}

type History interface {
	Record(ctx context.Context, entry HistoryEntry) error
	CountByToken(ctx context.Context, tokenID string, category Category) (int, error)
}

func NewHistory(db *sql.DB) History {
	return &HistoryImpl{db: db}
}

type HistoryImpl struct {
	db *sql.DB
}

func (h *HistoryImpl) Record(ctx context.Context, entry HistoryEntry) error {
	sentAt := entry.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO notification_history (category, token_id, counterparty, amount, symbol, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(entry.Category), entry.TokenID, entry.Counterparty, entry.Amount, entry.Symbol, sentAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (h *HistoryImpl) CountByToken(ctx context.Context, tokenID string, category Category) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_history WHERE token_id = ? AND category = ?`,
		tokenID, string(category),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
