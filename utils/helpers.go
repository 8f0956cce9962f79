package utils

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// SanitizeFilename очищает имя файла от недопустимых символов
func SanitizeFilename(filename string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}

	return result
}

// FormatSizeMiB форматирует размер в мегабайтах с двумя знаками после запятой
func FormatSizeMiB(sizeBytes int64) string {
	return fmt.Sprintf("%.2f МБ", float64(sizeBytes)/1024/1024)
}

// RetryWithBackoff выполняет функцию с повторными попытками и экспоненциальной задержкой
func RetryWithBackoff(operation func() error, maxRetries int, baseDelay time.Duration) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Экспоненциальная задержка: 1s, 2s, 4s, 8s, 16s
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			log.Printf("🔄 Попытка %d/%d через %v...", attempt+1, maxRetries+1, delay)
			time.Sleep(delay)
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				log.Printf("✅ Операция успешна после %d попыток", attempt+1)
			}
			return nil
		}

		lastErr = err
		log.Printf("❌ Попытка %d/%d неудачна: %v", attempt+1, maxRetries+1, err)
	}

	log.Printf("💥 Все %d попыток исчерпаны", maxRetries+1)
	return lastErr
}
