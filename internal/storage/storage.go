// internal/storage/storage.go
package storage

import (
	"card-cashback/internal/domain"
	"context"
)

// CatalogStorage — читающий коллаборатор: полный снапшот каталога.
// Порядок строк не гарантируется, ядро на него не опирается.
type CatalogStorage interface {
	ListCards(ctx context.Context) ([]domain.CreditCard, error)
	ListEntries(ctx context.Context) ([]domain.CashbackEntry, error)
}

// CardStorage — пишущий коллаборатор: карта вместе с её кэшбэк-строками.
// Вставка атомарна: либо карта и все строки, либо ничего.
type CardStorage interface {
	CreateCardWithEntries(ctx context.Context, card domain.CreditCard, entries []domain.CashbackEntry) (string, error)
}
