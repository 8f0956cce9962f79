package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mediaBot/config"
)

// YtDlpExtractor — основной движок извлечения поверх внешнего yt-dlp
type YtDlpExtractor struct {
	proxy *config.ProxyConfig
}

// NewYtDlpExtractor создает движок с настройками прокси
func NewYtDlpExtractor(proxy *config.ProxyConfig) *YtDlpExtractor {
	return &YtDlpExtractor{proxy: proxy}
}

// getYtDlpPath возвращает путь к yt-dlp
func getYtDlpPath() string {
	if _, err := exec.LookPath("/usr/local/bin/yt-dlp"); err == nil {
		return "/usr/local/bin/yt-dlp"
	}
	if _, err := exec.LookPath("yt-dlp"); err == nil {
		return "yt-dlp"
	}
	return "/usr/local/bin/yt-dlp" // По умолчанию
}

// baseArgs — общие аргументы всех вызовов yt-dlp
func (e *YtDlpExtractor) baseArgs() []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
	}
	args = append(args, e.proxy.GetYtDlpArgs()...)
	return args
}

// dumpInfo — структура для разбора yt-dlp -J
type dumpInfo struct {
	Formats []RawFormat `json:"formats"`
}

// ListFormats получает список форматов через yt-dlp -J
func (e *YtDlpExtractor) ListFormats(ctx context.Context, url string) ([]RawFormat, error) {
	log.Printf("🔍 Получение форматов для: %s", url)

	args := append([]string{"-J"}, e.baseArgs()...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, getYtDlpPath(), args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, classifyYtDlpError(ctx, err)
	}

	var info dumpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("ошибка разбора вывода yt-dlp: %v", err)
	}

	log.Printf("📊 yt-dlp вернул %d форматов", len(info.Formats))
	return info.Formats, nil
}

// Fetch скачивает выбранный формат (или лучшее аудио) в рабочую директорию
func (e *YtDlpExtractor) Fetch(ctx context.Context, url string, spec FetchSpec) (string, error) {
	outtmpl := filepath.Join(spec.OutDir, "%(title).200s.%(ext)s")

	args := e.baseArgs()
	args = append(args, "-o", outtmpl)

	if spec.BestAudio {
		// Лучшее аудио с конвертацией в целевой контейнер
		args = append(args,
			"-f", "bestaudio",
			"-x",
			"--audio-format", spec.AudioTarget,
			"--audio-quality", "192K",
		)
	} else {
		args = append(args,
			"-f", spec.FormatID,
			"--merge-output-format", "mp4",
		)
	}
	args = append(args, url)

	log.Printf("🚀 Запуск yt-dlp: %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, getYtDlpPath(), args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Printf("❌ yt-dlp ошибка: %v\n📋 Вывод: %s", err, string(output))
		return "", classifyYtDlpOutput(ctx, err, string(output))
	}

	return findArtifact(spec.OutDir)
}

// findArtifact находит скачанный файл в рабочей директории задачи.
// Директория эксклюзивна для одной задачи, поэтому берем самый большой
// готовый файл, игнорируя недокачанные .part.
func findArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения рабочей директории: %v", err)
	}

	var best string
	var bestSize int64 = -1
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, entry.Name())
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("скачанный файл не найден")
	}
	return best, nil
}

// classifyYtDlpError сводит ошибку запуска к таксономии извлечения
func classifyYtDlpError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("таймаут yt-dlp: %w", ctx.Err())
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return classifyYtDlpOutput(ctx, err, string(exitErr.Stderr))
	}
	if _, ok := err.(*exec.Error); ok {
		// Сам yt-dlp не найден в системе
		return fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	return fmt.Errorf("ошибка yt-dlp: %v", err)
}

// classifyYtDlpOutput распознает класс ошибки по выводу yt-dlp
func classifyYtDlpOutput(ctx context.Context, err error, output string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("таймаут yt-dlp: %w", ctx.Err())
	}

	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "unsupported url"),
		strings.Contains(lower, "unable to download webpage"),
		strings.Contains(lower, "video unavailable"):
		return fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	case strings.Contains(lower, "requested format is not available"),
		strings.Contains(lower, "no video formats found"):
		return fmt.Errorf("%w: %v", ErrNoMatchingFormat, err)
	case strings.Contains(lower, "ffmpeg"), strings.Contains(lower, "ffprobe"),
		strings.Contains(lower, "postprocess"):
		return fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	return fmt.Errorf("ошибка yt-dlp: %v", err)
}
