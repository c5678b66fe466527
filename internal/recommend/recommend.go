// internal/recommend/recommend.go
package recommend

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"card-cashback/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// newCollator: collate.Collator держит внутренний буфер, поэтому на каждый
// вызов создаём свой (Rank/Categories могут выполняться конкурентно).
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// BuildIndex раскладывает пары (карта, кэшбэк) по категориям.
// Категория берётся дословно, без trim и без нормализации регистра.
// Строки с card_id, которого нет среди карт, молча отбрасываются.
func BuildIndex(cards []domain.CreditCard, entries []domain.CashbackEntry) map[string][]domain.Candidate {
	cardByID := make(map[string]domain.CreditCard, len(cards))
	for _, card := range cards {
		cardByID[card.ID] = card
	}

	index := make(map[string][]domain.Candidate)
	for _, entry := range entries {
		card, ok := cardByID[entry.CardID]
		if !ok {
			continue
		}
		index[entry.Category] = append(index[entry.Category], domain.Candidate{
			Card:     card,
			Cashback: entry,
		})
	}
	return index
}

// Rank сортирует кандидатов: процент по убыванию, при равенстве — имя карты
// по возрастанию (locale-aware). Вход не изменяется.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)

	col := newCollator()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Cashback.CashbackRate != ranked[j].Cashback.CashbackRate {
			return ranked[i].Cashback.CashbackRate > ranked[j].Cashback.CashbackRate
		}
		return col.CompareString(ranked[i].Card.CardName, ranked[j].Card.CardName) < 0
	})
	return ranked
}

// Recommendation — лучший вариант + остальные, в порядке ранжирования.
type Recommendation struct {
	Category string             `json:"category"`
	Best     *domain.Candidate  `json:"best"`
	Others   []domain.Candidate `json:"others"`
}

// Recommend строит рекомендацию для одной категории. Пустой список
// кандидатов — валидное состояние ("нет карт"), не ошибка.
func Recommend(cards []domain.CreditCard, entries []domain.CashbackEntry, category string) Recommendation {
	ranked := Rank(BuildIndex(cards, entries)[category])

	rec := Recommendation{Category: category, Others: []domain.Candidate{}}
	if len(ranked) > 0 {
		rec.Best = &ranked[0]
		rec.Others = ranked[1:]
	}
	return rec
}

// Categories возвращает отсортированный список различных категорий.
// Пустые (после trim) не попадают в список; регистр не нормализуется.
func Categories(entries []domain.CashbackEntry) []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Category)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		categories = append(categories, name)
	}

	col := newCollator()
	sort.SliceStable(categories, func(i, j int) bool {
		return col.CompareString(categories[i], categories[j]) < 0
	})
	return categories
}

// FormatRate — "3" → "3%", "3.5" → "3.5%". Целое значение без десятичных,
// дробное округляется до двух знаков, хвостовые нули отбрасываются.
func FormatRate(rate float64) string {
	if rate == math.Trunc(rate) {
		return strconv.FormatFloat(rate, 'f', 0, 64) + "%"
	}
	s := strconv.FormatFloat(rate, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + "%"
}
