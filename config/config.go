package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию бота
type Config struct {
	TelegramToken string
	TelegramAPI   string // пустая строка = официальный API

	DownloadDir  string // корень для рабочих директорий задач
	CacheDir     string
	CacheEnabled bool

	MaxFileSize     int64         // потолок размера артефакта в байтах
	CleanupDelay    time.Duration // задержка перед удалением рабочей директории
	PendingTTL      time.Duration // время жизни неиспользованных запросов
	SweepInterval   time.Duration // период очистки просроченных запросов
	MaxWorkers      int           // размер пула воркеров загрузки
	ExtractTimeout  time.Duration // таймаут получения форматов
	DownloadTimeout time.Duration // таймаут загрузки/конвертации

	AllowedPlatforms []string // пустой список = все поддерживаемые
	UseNativeYouTube bool     // нативный движок kkdai/youtube для YouTube
	HTTPTimeout      time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAPI:   os.Getenv("TELEGRAM_API"),

		DownloadDir:  getEnv("DOWNLOAD_DIR", "./downloads"),
		CacheDir:     getEnv("CACHE_DIR", "./cache"),
		CacheEnabled: getEnvAsBool("CACHE_ENABLED", true),

		MaxFileSize:     int64(getEnvAsInt("MAX_FILE_SIZE_MB", 50)) * 1024 * 1024,
		CleanupDelay:    time.Duration(getEnvAsInt("CLEANUP_DELAY_SECONDS", 60)) * time.Second,
		PendingTTL:      time.Duration(getEnvAsInt("PENDING_TTL_MINUTES", 15)) * time.Minute,
		SweepInterval:   time.Duration(getEnvAsInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		MaxWorkers:      getEnvAsInt("MAX_WORKERS", 3),
		ExtractTimeout:  time.Duration(getEnvAsInt("EXTRACT_TIMEOUT_SECONDS", 120)) * time.Second,
		DownloadTimeout: time.Duration(getEnvAsInt("DOWNLOAD_TIMEOUT_MINUTES", 10)) * time.Minute,

		AllowedPlatforms: getEnvAsList("ALLOWED_PLATFORMS"),
		UseNativeYouTube: getEnvAsBool("USE_NATIVE_YOUTUBE", false),
		HTTPTimeout:      time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	validate(cfg)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// validate страхует от заведомо нерабочих значений
func validate(cfg *Config) {
	if cfg.MaxWorkers < 1 {
		log.Println("⚠️ MAX_WORKERS должен быть не меньше 1, сбрасываю на 3")
		cfg.MaxWorkers = 3
	}
	if cfg.MaxFileSize < 1 {
		log.Println("⚠️ MAX_FILE_SIZE_MB должен быть положительным, сбрасываю на 50 МБ")
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if cfg.CleanupDelay < time.Second {
		log.Println("⚠️ CLEANUP_DELAY_SECONDS слишком мал, сбрасываю на 60 секунд")
		cfg.CleanupDelay = 60 * time.Second
	}
	// TTL меню должен заметно превышать задержку удаления файлов
	if cfg.PendingTTL <= cfg.CleanupDelay {
		log.Println("⚠️ PENDING_TTL_MINUTES меньше задержки очистки, сбрасываю на 15 минут")
		cfg.PendingTTL = 15 * time.Minute
	}
}
