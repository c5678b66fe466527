// internal/handler/cards.go
package handler

import (
	"card-cashback/internal/domain"
	"card-cashback/internal/ingest"
	"card-cashback/internal/recommend"
	"card-cashback/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type CombinedStorage interface {
	storage.CatalogStorage
	storage.CardStorage
}

type CardsHandler struct {
	store    CombinedStorage
	passcode string
}

func NewCardsHandler(store CombinedStorage, adminPasscode string) *CardsHandler {
	return &CardsHandler{store: store, passcode: adminPasscode}
}

// loadSnapshot читает обе таблицы параллельно. Снапшот "достаточно
// согласованный": карта без видимых строк просто нигде не ранжируется.
func (h *CardsHandler) loadSnapshot(ctx context.Context) ([]domain.CreditCard, []domain.CashbackEntry, error) {
	var (
		cards   []domain.CreditCard
		entries []domain.CashbackEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = h.store.ListCards(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = h.store.ListEntries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cards, entries, nil
}

// GetCatalog godoc
// @Summary Full catalog snapshot: cards, cashback entries, derived categories
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]string
// @Router /api/v1/catalog [get]
func (h *CardsHandler) GetCatalog(c *gin.Context) {
	cards, entries, err := h.loadSnapshot(c.Request.Context())
	if err != nil {
		slog.Error("GetCatalog failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if cards == nil {
		cards = []domain.CreditCard{}
	}
	if entries == nil {
		entries = []domain.CashbackEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"cards":            cards,
		"cashback_entries": entries,
		"categories":       recommend.Categories(entries),
	})
}

// GetCategories godoc
// @Summary Distinct selectable categories
// @Success 200 {array} string
// @Failure 500 {object} map[string]string
// @Router /api/v1/categories [get]
func (h *CardsHandler) GetCategories(c *gin.Context) {
	entries, err := h.store.ListEntries(c.Request.Context())
	if err != nil {
		slog.Error("GetCategories failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	categories := recommend.Categories(entries)
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, categories)
}

type candidateResponse struct {
	Card        domain.CreditCard    `json:"card"`
	Cashback    domain.CashbackEntry `json:"cashback"`
	DisplayRate string               `json:"display_rate"`
}

func toCandidateResponse(cand domain.Candidate) candidateResponse {
	return candidateResponse{
		Card:        cand.Card,
		Cashback:    cand.Cashback,
		DisplayRate: recommend.FormatRate(cand.Cashback.CashbackRate),
	}
}

// GetRecommendation godoc
// @Summary Ranked card recommendation for one category
// @Param category query string true "Category label (exact match)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/recommend [get]
func (h *CardsHandler) GetRecommendation(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category query param required"})
		return
	}

	cards, entries, err := h.loadSnapshot(c.Request.Context())
	if err != nil {
		slog.Error("GetRecommendation failed", "error", err, "category", category)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rec := recommend.Recommend(cards, entries, category)

	var best *candidateResponse
	if rec.Best != nil {
		b := toCandidateResponse(*rec.Best)
		best = &b
	}
	others := make([]candidateResponse, len(rec.Others))
	for i, cand := range rec.Others {
		others[i] = toCandidateResponse(cand)
	}

	c.JSON(http.StatusOK, gin.H{
		"category": rec.Category,
		"best":     best,
		"others":   others,
	})
}

// === DTO ===

type addCardRequest struct {
	Passcode string `json:"passcode"`
	Card     struct {
		CardName   string `json:"card_name"`
		Issuer     string `json:"issuer"`
		ExpiryDate string `json:"expiry_date"`
		Notes      string `json:"notes"`
	} `json:"card"`
	Categories []struct {
		Category     string          `json:"category"`
		CashbackRate json.RawMessage `json:"cashback_rate"`
		Cap          string          `json:"cap"`
	} `json:"categories"`
}

// rateText: в форме процент приходит строкой, из API-клиентов — числом.
// Валидатору в любом случае нужен текст.
func rateText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err == nil {
			return unquoted
		}
	}
	return s
}

func (req *addCardRequest) toSubmission() ingest.RawSubmission {
	sub := ingest.RawSubmission{
		Passcode: req.Passcode,
		Card: ingest.RawCard{
			CardName:   req.Card.CardName,
			Issuer:     req.Card.Issuer,
			ExpiryDate: req.Card.ExpiryDate,
			Notes:      req.Card.Notes,
		},
	}
	for _, row := range req.Categories {
		sub.Categories = append(sub.Categories, ingest.RawCategoryRow{
			Category:     row.Category,
			CashbackRate: rateText(row.CashbackRate),
			Cap:          row.Cap,
		})
	}
	return sub
}

// AddCard godoc
// @Summary Validate and persist an admin card submission
// @Accept json
// @Produce json
// @Param request body addCardRequest true "Card submission"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/v1/admin/cards [post]
func (h *CardsHandler) AddCard(c *gin.Context) {
	var req addCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON body."})
		return
	}

	normalized, err := ingest.Validate(h.passcode, req.toSubmission())
	if err != nil {
		h.rejectSubmission(c, err)
		return
	}

	card := domain.CreditCard{
		CardName:   normalized.Card.CardName,
		Issuer:     normalized.Card.Issuer,
		Notes:      normalized.Card.Notes,
		ExpiryDate: normalized.Card.ExpiryDate,
	}
	entries := make([]domain.CashbackEntry, len(normalized.Categories))
	for i, row := range normalized.Categories {
		entries[i] = domain.CashbackEntry{
			Category:     row.Category,
			CashbackRate: row.CashbackRate,
			Cap:          row.Cap,
		}
	}

	cardID, err := h.store.CreateCardWithEntries(c.Request.Context(), card, entries)
	if err != nil {
		// Ошибку хранилища отдаём как есть, не глотаем
		slog.Error("AddCard storage failure", "error", err, "card_name", card.CardName)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	slog.Info("card ingested", "card_id", cardID, "card_name", card.CardName, "categories", len(entries))
	c.JSON(http.StatusOK, gin.H{"ok": true, "card_id": cardID})
}

func (h *CardsHandler) rejectSubmission(c *gin.Context, err error) {
	var vErr *ingest.ValidationError
	switch {
	case errors.Is(err, ingest.ErrMisconfigured):
		slog.Error("AddCard rejected: admin passcode not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ingest.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": vErr.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
