// internal/ingest/submission.go
package ingest

import (
	"crypto/subtle"
	"fmt"
	"math"
	"strconv"
	"strings"

	val "card-cashback/internal/validator"

	"github.com/go-playground/validator/v10"
)

// RawSubmission — заявка админа как пришла с формы: всё текстом,
// включая проценты.
type RawSubmission struct {
	Passcode   string
	Card       RawCard
	Categories []RawCategoryRow
}

type RawCard struct {
	CardName   string `json:"card_name" validate:"notblank"`
	Issuer     string `json:"issuer" validate:"notblank"`
	ExpiryDate string `json:"expiry_date" validate:"notblank,dateymd"`
	Notes      string `json:"notes"`
}

type RawCategoryRow struct {
	Category     string
	CashbackRate string
	Cap          string
}

// NormalizedCardSubmission — очищенная заявка, готовая к записи.
type NormalizedCardSubmission struct {
	Card       NormalizedCard
	Categories []NormalizedCategoryRow
}

type NormalizedCard struct {
	CardName   string
	Issuer     string
	ExpiryDate string
	Notes      string // пустая строка = отсутствует
}

type NormalizedCategoryRow struct {
	Category     string
	CashbackRate float64
	Cap          string // пустая строка = отсутствует
}

// Validate проверяет заявку по правилам в фиксированном порядке: первое
// сработавшее правило определяет ошибку.
//
//  1. сервер сконфигурирован (есть ожидаемый пасскод)
//  2. пасскод совпадает
//  3. card_name / issuer / expiry_date не пустые (после trim)
//  4. expiry_date вида YYYY-MM-DD (без календарной проверки)
//  5. строки категорий нормализуются, пустые категории отбрасываются
//  6. осталась хотя бы одна строка
//  7. процент каждой строки парсится как число
func Validate(expectedPasscode string, sub RawSubmission) (NormalizedCardSubmission, error) {
	var zero NormalizedCardSubmission

	if expectedPasscode == "" {
		return zero, ErrMisconfigured
	}
	if subtle.ConstantTimeCompare([]byte(sub.Passcode), []byte(expectedPasscode)) != 1 {
		return zero, ErrUnauthorized
	}

	card := NormalizedCard{
		CardName:   strings.TrimSpace(sub.Card.CardName),
		Issuer:     strings.TrimSpace(sub.Card.Issuer),
		ExpiryDate: strings.TrimSpace(sub.Card.ExpiryDate),
		Notes:      strings.TrimSpace(sub.Card.Notes),
	}

	if err := validateCard(RawCard{
		CardName:   card.CardName,
		Issuer:     card.Issuer,
		ExpiryDate: card.ExpiryDate,
	}); err != nil {
		return zero, err
	}

	// Нормализация строк: trim категории и капа, пустые категории — мимо.
	type pendingRow struct {
		category string
		rateText string
		cap      string
	}
	var pending []pendingRow
	for _, row := range sub.Categories {
		category := strings.TrimSpace(row.Category)
		if category == "" {
			continue
		}
		pending = append(pending, pendingRow{
			category: category,
			rateText: strings.TrimSpace(row.CashbackRate),
			cap:      strings.TrimSpace(row.Cap),
		})
	}

	if len(pending) == 0 {
		return zero, ErrMissingCategories
	}

	rows := make([]NormalizedCategoryRow, len(pending))
	for i, row := range pending {
		// ParseFloat пропускает "NaN"/"Inf" — для процента это не числа
		rate, err := strconv.ParseFloat(row.rateText, 64)
		if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return zero, ErrInvalidRate
		}
		rows[i] = NormalizedCategoryRow{
			Category:     row.category,
			CashbackRate: rate,
			Cap:          row.cap,
		}
	}

	return NormalizedCardSubmission{Card: card, Categories: rows}, nil
}

// validateCard гоняет поля карты через общий валидатор. Порядок полей в
// структуре задаёт порядок ошибок, берём первую.
func validateCard(card RawCard) error {
	err := val.Validate.Struct(card)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &ValidationError{Reason: "Invalid card fields."}
	}
	return &ValidationError{Reason: fieldErrorToString(errs[0])}
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "notblank":
		return fmt.Sprintf("%s is required.", e.Field())
	case "dateymd":
		return fmt.Sprintf("%s must be YYYY-MM-DD.", e.Field())
	default:
		return fmt.Sprintf("%s is invalid.", e.Field())
	}
}
