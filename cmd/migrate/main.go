package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rajivgeraev/bonplan-api/internal/config"
	"github.com/rajivgeraev/bonplan-api/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Миграции создают admin_set_boost, поэтому идут через административное подключение
	m, err := db.NewMigrator(config.LoadDatabaseURL())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Ошибка при закрытии мигратора: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("Нет новых миграций, база в актуальном состоянии")
		case err != nil:
			log.Fatalf("❌ Ошибка при выполнении миграций: %v", err)
		default:
			log.Println("✅ Миграции успешно применены")
		}

	case "down":
		// Откатываем только последнюю миграцию
		if err := m.Steps(-1); err != nil {
			log.Fatalf("❌ Ошибка при откате миграции: %v", err)
		}
		log.Println("✅ Последняя миграция откачена")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("Укажите номер версии")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Неверный номер версии: %v", err)
		}
		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("❌ Ошибка перехода на версию %d: %v", version, err)
		}
		log.Printf("✅ База на версии %d", version)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("Миграции ещё не применялись")
			return
		}
		if err != nil {
			log.Fatalf("❌ Ошибка получения версии: %v", err)
		}
		status := ""
		if dirty {
			status = " (dirty)"
		}
		log.Printf("Текущая версия: %d%s", version, status)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Использование: go run ./cmd/migrate <команда>")
	fmt.Println("Команды:")
	fmt.Println("  up       - применить все новые миграции")
	fmt.Println("  down     - откатить последнюю миграцию")
	fmt.Println("  goto N   - перейти на версию N")
	fmt.Println("  version  - показать текущую версию")
}
