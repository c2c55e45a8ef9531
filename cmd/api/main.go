package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rajivgeraev/bonplan-api/internal/cache"
	"github.com/rajivgeraev/bonplan-api/internal/config"
	"github.com/rajivgeraev/bonplan-api/internal/db"
	"github.com/rajivgeraev/bonplan-api/internal/kafka"
	"github.com/rajivgeraev/bonplan-api/internal/middleware"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/rajivgeraev/bonplan-api/internal/payment/paypal"
	"github.com/rajivgeraev/bonplan-api/internal/payment/stripe"
	"github.com/rajivgeraev/bonplan-api/internal/repository"
	"github.com/rajivgeraev/bonplan-api/internal/services/auth"
	"github.com/rajivgeraev/bonplan-api/internal/services/boost"
	"github.com/rajivgeraev/bonplan-api/internal/services/listing"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// В разработке схема поднимается при старте, в проде через cmd/migrate
	if cfg.AppEnv == "development" {
		if err := db.MigrateUp(cfg.AdminDatabaseURL); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Журнал списаний PayPal: Redis, если настроен, иначе память процесса
	var ledger paypal.CaptureLedger = paypal.NewMemoryLedger()
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisCache.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatalf("❌ Redis недоступен: %v", err)
		}
		defer redisCache.Close()
		ledger = redisCache
		log.Println("✅ Журнал списаний PayPal в Redis")
	} else {
		log.Println("⚠️ REDIS_ADDR не задан, журнал списаний PayPal хранится в памяти")
	}

	providers := setupProviders(cfg, ledger)
	if len(providers) == 0 {
		log.Println("⚠️ Ни один платёжный провайдер не настроен, покупка бустов недоступна")
	}

	// Репозитории
	listings := repository.NewListingRepository(db.Pool, db.AdminPool)
	reconciliations := repository.NewReconciliationRepository(db.Pool)
	queries := repository.NewListingQueries(db.Pool)

	boostOpts := []boost.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		boostOpts = append(boostOpts, boost.WithEvents(producer, cfg.Kafka.BoostTopic))
		log.Printf("✅ События бустов публикуются в Kafka, топик %s", cfg.Kafka.BoostTopic)
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "BonPlan API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.PublicAppURL},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	listingService := listing.NewListingService(listings, queries)
	boostService := boost.NewBoostService(listings, providers, reconciliations, boostOpts...)

	// Настраиваем middleware для аутентификации
	authMiddleware := middleware.AuthMiddleware(authService.GetJWTService())

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	listingService.SetupRoutes(app, authMiddleware)
	boostService.SetupRoutes(app, authMiddleware)

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Останавливаемся по сигналу, давая завершиться текущим подтверждениям оплат
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Остановка сервера...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("❌ Ошибка при остановке сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Printf("✅ BonPlan API запущен на порту %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Сервер остановлен с ошибкой: %v", err)
	}
}

// setupProviders подключает провайдеров, для которых заданы ключи
func setupProviders(cfg *config.Config, ledger paypal.CaptureLedger) payment.Registry {
	var providers []payment.Provider

	if cfg.Payments.StripeEnabled() {
		providers = append(providers, stripe.NewClient(stripe.Config{
			SecretKey:       cfg.Payments.StripeSecretKey,
			APIURL:          cfg.Payments.StripeAPIURL,
			SuccessURL:      cfg.PublicAppURL + "/payment-success?provider=stripe&session_id={CHECKOUT_SESSION_ID}",
			CancelURL:       cfg.PublicAppURL + "/mes-annonces",
			CheckoutTimeout: cfg.Payments.CheckoutTimeout,
			ConfirmTimeout:  cfg.Payments.ConfirmTimeout,
		}))
		log.Println("✅ Stripe подключен")
	}

	if cfg.Payments.PayPalEnabled() {
		providers = append(providers, paypal.NewClient(paypal.Config{
			ClientID:        cfg.Payments.PayPalClientID,
			Secret:          cfg.Payments.PayPalSecret,
			APIURL:          cfg.Payments.PayPalAPIURL,
			BrandName:       cfg.Payments.PayPalBrandName,
			ReturnURL:       cfg.PublicAppURL + "/payment-success?provider=paypal",
			CancelURL:       cfg.PublicAppURL + "/mes-annonces",
			AuthTimeout:     cfg.Payments.AuthTimeout,
			CheckoutTimeout: cfg.Payments.CheckoutTimeout,
			CaptureTimeout:  cfg.Payments.CaptureTimeout,
			LockTTL:         cfg.Payments.CaptureLockTTL,
			ResultTTL:       cfg.Payments.CaptureResultTTL,
		}, ledger))
		log.Println("✅ PayPal подключен")
	}

	return payment.NewRegistry(providers...)
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Внутренняя ошибка сервера"

	// Проверяем, является ли ошибка из Fiber
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("❌ Необработанная ошибка %s %s: %v", c.Method(), c.Path(), err)
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
