// cmd/bot/main.go
package main

import (
	"card-cashback/internal/config"
	"card-cashback/internal/domain"
	"card-cashback/internal/recommend"
	"card-cashback/internal/storage"
	"card-cashback/internal/storage/postgres"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	_ = godotenv.Load()

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN not set")
	}

	cfg := config.MustLoad()
	db, err := pgxpool.New(context.Background(), cfg.DBConn)
	if err != nil {
		log.Fatal("Failed to connect to DB:", err)
	}
	defer db.Close()

	store := postgres.NewStorage(db)

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Panic(err)
	}

	log.Printf("Bot started: @%s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		chatID := update.Message.Chat.ID
		text := strings.TrimSpace(update.Message.Text)

		var msgText string
		var errHandle error

		switch {
		case text == "/start" || text == "/help":
			msgText = "💳 *Card Cashback*\n\n" +
				"Команды:\n" +
				"`/categories` — список категорий\n" +
				"`/best Dining` — лучшая карта для категории"

		case text == "/categories":
			msgText, errHandle = handleCategories(store)

		case strings.HasPrefix(text, "/best "):
			category := strings.TrimSpace(text[len("/best "):])
			msgText, errHandle = handleBest(store, category)

		case text == "/best":
			msgText = "❌ Используй: /best Категория"

		default:
			msgText = "Неизвестная команда. Напиши /help"
		}

		if errHandle != nil {
			log.Printf("handler error: %v", errHandle)
			msgText = "❌ Ошибка: " + errHandle.Error()
		}

		msg := tgbotapi.NewMessage(chatID, msgText)
		msg.ParseMode = "Markdown"
		_, _ = bot.Send(msg)
	}
}

func handleCategories(store storage.CatalogStorage) (string, error) {
	entries, err := store.ListEntries(context.Background())
	if err != nil {
		return "", err
	}

	categories := recommend.Categories(entries)
	if len(categories) == 0 {
		return "📭 Категорий пока нет", nil
	}

	var lines []string
	lines = append(lines, "🏷 *Категории*")
	for _, category := range categories {
		lines = append(lines, "- "+category)
	}
	return strings.Join(lines, "\n"), nil
}

// handleBest: категория матчится точно, с учётом регистра — как и в API
func handleBest(store storage.CatalogStorage, category string) (string, error) {
	if category == "" {
		return "❌ Укажи категорию", nil
	}

	cards, err := store.ListCards(context.Background())
	if err != nil {
		return "", err
	}
	entries, err := store.ListEntries(context.Background())
	if err != nil {
		return "", err
	}

	rec := recommend.Recommend(cards, entries, category)
	if rec.Best == nil {
		return fmt.Sprintf("📭 Нет карт для категории *%s*", category), nil
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("🥇 *%s*", candidateLine(*rec.Best)))
	if notes := rec.Best.Card.Notes; notes != "" {
		lines = append(lines, "_"+notes+"_")
	}
	if len(rec.Others) > 0 {
		lines = append(lines, "", "Ещё варианты:")
		for _, cand := range rec.Others {
			lines = append(lines, "- "+candidateLine(cand))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func candidateLine(cand domain.Candidate) string {
	line := fmt.Sprintf("%s (%s) — %s", cand.Card.CardName, cand.Card.Issuer,
		recommend.FormatRate(cand.Cashback.CashbackRate))
	if cand.Cashback.Cap != "" {
		line += ", cap: " + cand.Cashback.Cap
	}
	return line
}
