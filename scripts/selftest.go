package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"mediaBot/config"

	"github.com/joho/godotenv"
)

// Самопроверка окружения: внешние зависимости и конфигурация бота.
// Запуск: go run ./scripts
func main() {
	fmt.Println("🧪 Самопроверка окружения media-бота")
	fmt.Println("====================================")

	godotenv.Load()
	cfg := config.Load()

	ok := true

	// Тест 1: внешние бинарники
	fmt.Println("\n🔧 Тест 1: внешние зависимости")
	for _, bin := range []string{"yt-dlp", "ffmpeg"} {
		if path, err := exec.LookPath(bin); err == nil {
			fmt.Printf("✅ %s найден: %s\n", bin, path)
		} else {
			fmt.Printf("❌ %s не найден в PATH\n", bin)
			ok = false
		}
	}

	// Тест 2: yt-dlp отвечает
	fmt.Println("\n🚀 Тест 2: версия yt-dlp")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, "yt-dlp", "--version").Output(); err == nil {
		fmt.Printf("✅ yt-dlp версия: %s", string(out))
	} else {
		fmt.Printf("❌ yt-dlp --version не выполнился: %v\n", err)
		ok = false
	}

	// Тест 3: конфигурация
	fmt.Println("\n⚙️ Тест 3: конфигурация")
	if cfg.TelegramToken == "" {
		fmt.Println("❌ TELEGRAM_BOT_TOKEN не задан")
		ok = false
	} else {
		fmt.Println("✅ TELEGRAM_BOT_TOKEN задан")
	}
	fmt.Printf("📏 Лимит файла: %d байт\n", cfg.MaxFileSize)
	fmt.Printf("🗑️ Задержка очистки: %v\n", cfg.CleanupDelay)
	fmt.Printf("👷 Воркеров: %d\n", cfg.MaxWorkers)

	proxyCfg := config.LoadProxyConfig()
	if proxyCfg.UseProxy {
		fmt.Printf("🌐 Прокси включен: %s\n", proxyCfg.ProxyURL)
	} else {
		fmt.Println("🌐 Прокси отключен")
	}

	fmt.Println()
	if !ok {
		fmt.Println("💥 Самопроверка не пройдена")
		os.Exit(1)
	}
	fmt.Println("🎉 Все проверки пройдены")
}
