package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"mediaBot/config"
	"mediaBot/handlers"
	"mediaBot/internal/netx"
	"mediaBot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	if cfg.TelegramToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_TOKEN не задан")
	}

	// 1. Файловая система: корень рабочих директорий
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		log.Fatalf("❌ Не удалось подготовить %s: %v", cfg.DownloadDir, err)
	}

	// 2. Telegram клиент с учетом прокси
	proxyCfg := config.LoadProxyConfig()
	httpClient := netx.NewHTTPClient(proxyCfg, cfg.HTTPTimeout)

	endpoint := tgbotapi.APIEndpoint
	if cfg.TelegramAPI != "" {
		endpoint = cfg.TelegramAPI + "/bot%s/%s"
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, endpoint, httpClient)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации бота: %v", err)
	}
	log.Printf("🤖 Бот запущен: @%s", api.Self.UserName)

	// 3. Сервисы
	detector := services.NewPlatformDetector(cfg.AllowedPlatforms)
	store := services.NewPendingStore()
	store.StartSweeper(cfg.SweepInterval, cfg.PendingTTL)
	cleaner := services.NewCleaner(cfg.CleanupDelay)

	var extractor services.Extractor = services.NewYtDlpExtractor(proxyCfg)
	if cfg.UseNativeYouTube {
		log.Printf("⚙️ Включен нативный движок для YouTube")
		extractor = services.NewEngineRouter(detector, services.NewNativeYouTubeExtractor(), extractor)
	}

	var cache *services.FileCache
	if cfg.CacheEnabled {
		cache, err = services.NewFileCache(cfg.CacheDir)
		if err != nil {
			log.Printf("⚠️ Кэш отключен: %v", err)
		}
	}

	gateway := handlers.NewBotGateway(api)
	dispatcher := services.NewDispatcher(cfg, store, extractor, gateway, cleaner, cache)
	dispatcher.Start()

	handler := handlers.NewTelegramHandler(gateway, store, dispatcher, extractor, detector, cfg)

	// 4. Цикл обновлений: каждое событие в своей горутине, чтобы одна
	// медленная загрузка не задерживала ответы другим чатам
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := api.GetUpdatesChan(updateConfig)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("✅ Готов к приему сообщений")

	for {
		select {
		case update := <-updates:
			go handler.HandleUpdate(update)
		case sig := <-stop:
			log.Printf("🛑 Получен сигнал %v, завершаю работу...", sig)
			api.StopReceivingUpdates()
			dispatcher.Stop()
			store.StopSweeper()
			cleaner.Stop()
			if cache != nil {
				cache.Close()
			}
			log.Printf("👋 Бот остановлен")
			return
		}
	}
}
