package handler

import (
	"bytes"
	"card-cashback/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStorage struct {
	cards   []domain.CreditCard
	entries []domain.CashbackEntry

	listErr   error
	createErr error

	createdCard    domain.CreditCard
	createdEntries []domain.CashbackEntry
}

func (s *stubStorage) ListCards(ctx context.Context) ([]domain.CreditCard, error) {
	return s.cards, s.listErr
}

func (s *stubStorage) ListEntries(ctx context.Context) ([]domain.CashbackEntry, error) {
	return s.entries, s.listErr
}

func (s *stubStorage) CreateCardWithEntries(ctx context.Context, card domain.CreditCard, entries []domain.CashbackEntry) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.createdCard = card
	s.createdEntries = entries
	return "new-card-id", nil
}

func newTestRouter(store *stubStorage, passcode string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewCardsHandler(store, passcode)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", h.GetCatalog)
		v1.GET("/categories", h.GetCategories)
		v1.GET("/recommend", h.GetRecommendation)
		v1.POST("/admin/cards", h.AddCard)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if len(w.Body.Bytes()) > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func snapshotStore() *stubStorage {
	return &stubStorage{
		cards: []domain.CreditCard{
			{ID: "a", CardName: "Zeta", Issuer: "Bank A"},
			{ID: "b", CardName: "Alpha", Issuer: "Bank B"},
			{ID: "c", CardName: "Beta", Issuer: "Bank C"},
		},
		entries: []domain.CashbackEntry{
			{ID: "e1", CardID: "a", Category: "Dining", CashbackRate: 3},
			{ID: "e2", CardID: "b", Category: "Dining", CashbackRate: 5},
			{ID: "e3", CardID: "c", Category: "Dining", CashbackRate: 5},
			{ID: "e4", CardID: "ghost", Category: "Dining", CashbackRate: 99},
		},
	}
}

func TestGetRecommendation_RanksAndSplits(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/recommend?category=Dining", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dining", body["category"])

	best := body["best"].(map[string]any)
	bestCard := best["card"].(map[string]any)
	assert.Equal(t, "Alpha", bestCard["card_name"])
	assert.Equal(t, "5%", best["display_rate"])

	others := body["others"].([]any)
	require.Len(t, others, 2)
	firstOther := others[0].(map[string]any)["card"].(map[string]any)
	assert.Equal(t, "Beta", firstOther["card_name"])
}

func TestGetRecommendation_UnknownCategory(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/recommend?category=Unknown", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["best"])
	assert.Empty(t, body["others"])
}

func TestGetRecommendation_MissingParam(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/recommend", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecommendation_StorageFailure(t *testing.T) {
	store := snapshotStore()
	store.listErr = errors.New("connection refused")
	router := newTestRouter(store, "pass")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/recommend?category=Dining", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "connection refused")
}

func TestGetCatalog(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/catalog", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["cards"], 3)
	assert.Len(t, body["cashback_entries"], 4)
	assert.Equal(t, []any{"Dining"}, body["categories"])
}

func validAddCardBody() map[string]any {
	return map[string]any{
		"passcode": "pass",
		"card": map[string]any{
			"card_name":   " Amex Gold ",
			"issuer":      "American Express",
			"expiry_date": "2027-04-30",
			"notes":       "",
		},
		"categories": []map[string]any{
			{"category": " Dining ", "cashback_rate": "4", "cap": ""},
		},
	}
}

func TestAddCard_Success(t *testing.T) {
	store := snapshotStore()
	router := newTestRouter(store, "pass")

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", validAddCardBody())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "new-card-id", body["card_id"])

	assert.Equal(t, "Amex Gold", store.createdCard.CardName)
	require.Len(t, store.createdEntries, 1)
	assert.Equal(t, "Dining", store.createdEntries[0].Category)
	assert.Equal(t, float64(4), store.createdEntries[0].CashbackRate)
	assert.Empty(t, store.createdEntries[0].Cap)
}

func TestAddCard_NumericRate(t *testing.T) {
	store := snapshotStore()
	router := newTestRouter(store, "pass")

	reqBody := validAddCardBody()
	reqBody["categories"] = []map[string]any{
		{"category": "Gas", "cashback_rate": 2.5},
	}

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", reqBody)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.createdEntries, 1)
	assert.Equal(t, 2.5, store.createdEntries[0].CashbackRate)
}

func TestAddCard_WrongPasscode(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	reqBody := validAddCardBody()
	reqBody["passcode"] = "wrong"

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", reqBody)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Invalid passcode.", body["error"])
}

func TestAddCard_Misconfigured(t *testing.T) {
	router := newTestRouter(snapshotStore(), "") // пасскод не задан

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", validAddCardBody())

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["ok"])
}

func TestAddCard_ValidationFailure(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	reqBody := validAddCardBody()
	reqBody["card"].(map[string]any)["card_name"] = "  "

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", reqBody)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "card_name is required.", body["error"])
}

func TestAddCard_StorageFailure(t *testing.T) {
	store := snapshotStore()
	store.createErr = errors.New("insert card \"Amex Gold\": connection reset")
	router := newTestRouter(store, "pass")

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/cards", validAddCardBody())

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "connection reset")
}

func TestAddCard_InvalidJSON(t *testing.T) {
	router := newTestRouter(snapshotStore(), "pass")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cards", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
