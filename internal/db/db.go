package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rajivgeraev/bonplan-api/internal/config"
)

// Pool пул соединений с правами обычного пользователя приложения
var Pool *pgxpool.Pool

// AdminPool пул соединений с правами на admin_set_boost.
// Используется только активацией бустов.
var AdminPool *pgxpool.Pool

// InitDB инициализирует соединения с базой данных
func InitDB(cfg *config.Config) error {
	var err error

	log.Printf("Подключение к базе данных: %s@%s:%s/%s\n",
		cfg.DatabaseConfig.User, cfg.DatabaseConfig.Host, cfg.DatabaseConfig.Port, cfg.DatabaseConfig.Name)

	Pool, err = newPool(cfg.DatabaseURL, 10, 2)
	if err != nil {
		return err
	}

	if cfg.AdminDatabaseURL == cfg.DatabaseURL {
		AdminPool = Pool
	} else {
		AdminPool, err = newPool(cfg.AdminDatabaseURL, 4, 1)
		if err != nil {
			Pool.Close()
			return fmt.Errorf("административное подключение: %w", err)
		}
	}

	log.Println("✅ Успешное подключение к базе данных")
	return nil
}

func newPool(databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	// Создаем контекст с таймаутом для подключения
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL базы данных: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений: %w", err)
	}

	// Проверяем соединение
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	return pool, nil
}

// CloseDB закрывает соединения с базой данных
func CloseDB() {
	if AdminPool != nil && AdminPool != Pool {
		AdminPool.Close()
	}
	if Pool != nil {
		Pool.Close()
	}
}

// GetContext возвращает контекст с таймаутом для запросов к базе данных
func GetContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
