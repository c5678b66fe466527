// cmd/api/main.go
package main

import (
	"card-cashback/internal/config"
	"card-cashback/internal/handler"
	"card-cashback/internal/storage/postgres"
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	pool, err := pgxpool.New(context.Background(), cfg.DBConn)
	if err != nil {
		slog.Error("Не удалось подключиться к БД", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// БД может подниматься дольше сервиса — пингуем с бэкоффом
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Ping БД не удался", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Подключились к PostgreSQL")

	store := postgres.NewStorage(pool)

	if cfg.AdminPasscode == "" {
		slog.Warn("ADMIN_PASSCODE не задан: добавление карт будет отвечать 500")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Роуты
	cardsHandler := handler.NewCardsHandler(store, cfg.AdminPasscode)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", cardsHandler.GetCatalog)
		v1.GET("/categories", cardsHandler.GetCategories)
		v1.GET("/recommend", cardsHandler.GetRecommendation)
		v1.POST("/admin/cards", cardsHandler.AddCard)
	}

	slog.Info("🚀 Сервер запущен", "port", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		slog.Error("Сервер завершил работу с ошибкой", "error", err)
		os.Exit(1)
	}
}
