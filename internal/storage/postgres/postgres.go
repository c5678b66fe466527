// internal/storage/postgres/postgres.go
package postgres

import (
	"card-cashback/internal/domain"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// nullIfEmpty: пустые необязательные поля кладём как NULL
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// === CatalogStorage ===

func (s *Storage) ListCards(ctx context.Context) ([]domain.CreditCard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, card_name, issuer, COALESCE(notes, ''), COALESCE(expiry_date, '')
		FROM credit_cards
	`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.CreditCard
	for rows.Next() {
		var card domain.CreditCard
		if err := rows.Scan(&card.ID, &card.CardName, &card.Issuer, &card.Notes, &card.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *Storage) ListEntries(ctx context.Context) ([]domain.CashbackEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, card_id, category, cashback_rate, COALESCE(cap, '')
		FROM cashback_categories
	`)
	if err != nil {
		return nil, fmt.Errorf("list cashback entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CashbackEntry
	for rows.Next() {
		var entry domain.CashbackEntry
		if err := rows.Scan(&entry.ID, &entry.CardID, &entry.Category, &entry.CashbackRate, &entry.Cap); err != nil {
			return nil, fmt.Errorf("scan cashback entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// === CardStorage ===

// CreateCardWithEntries вставляет карту и её кэшбэк-строки в одной
// транзакции: осиротевшая карта без строк в базе появиться не может.
// Каждая ошибка вставки помечена шагом, на котором она случилась.
func (s *Storage) CreateCardWithEntries(ctx context.Context, card domain.CreditCard, entries []domain.CashbackEntry) (string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cardID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO credit_cards (id, card_name, issuer, notes, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
	`, cardID, card.CardName, card.Issuer, nullIfEmpty(card.Notes), nullIfEmpty(card.ExpiryDate))
	if err != nil {
		return "", fmt.Errorf("insert card %q: %w", card.CardName, err)
	}

	for _, entry := range entries {
		_, err = tx.Exec(ctx, `
			INSERT INTO cashback_categories (id, card_id, category, cashback_rate, cap)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), cardID, entry.Category, entry.CashbackRate, nullIfEmpty(entry.Cap))
		if err != nil {
			return "", fmt.Errorf("insert cashback row %q for card %s: %w", entry.Category, cardID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}

	slog.Debug("card created", "card_id", cardID, "categories", len(entries))
	return cardID, nil
}
