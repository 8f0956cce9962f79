package services

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedSource — источник недоступен или не поддерживается движком
	ErrUnsupportedSource = errors.New("источник не поддерживается или недоступен")
	// ErrNoMatchingFormat — запрошенный формат отсутствует у источника
	ErrNoMatchingFormat = errors.New("запрошенный формат недоступен")
	// ErrMissingDependency — нет ffmpeg/ffprobe для постобработки
	ErrMissingDependency = errors.New("отсутствует внешняя зависимость для конвертации")
)

// FetchSpec описывает, что именно скачивать и куда
type FetchSpec struct {
	FormatID    string // конкретный формат; пустой при BestAudio
	BestAudio   bool
	AudioTarget string // целевой аудиоконтейнер: mp3 или m4a
	OutDir      string // эксклюзивная рабочая директория задачи
}

// Extractor — контракт движка извлечения: список форматов и загрузка.
// Обе операции долгие и должны вызываться с таймаут-контекстом.
type Extractor interface {
	ListFormats(ctx context.Context, url string) ([]RawFormat, error)
	Fetch(ctx context.Context, url string, spec FetchSpec) (string, error)
}

// EngineRouter направляет YouTube-ссылки в нативный движок, остальные —
// в запасной (yt-dlp). Нужен только при включенном USE_NATIVE_YOUTUBE.
type EngineRouter struct {
	detector *PlatformDetector
	native   Extractor
	fallback Extractor
}

// NewEngineRouter собирает маршрутизатор движков
func NewEngineRouter(detector *PlatformDetector, native, fallback Extractor) *EngineRouter {
	return &EngineRouter{detector: detector, native: native, fallback: fallback}
}

func (r *EngineRouter) pick(url string) Extractor {
	switch r.detector.DetectPlatform(url).Type {
	case PlatformYouTube, PlatformYouTubeShorts:
		return r.native
	}
	return r.fallback
}

// ListFormats делегирует движку, подходящему для источника
func (r *EngineRouter) ListFormats(ctx context.Context, url string) ([]RawFormat, error) {
	return r.pick(url).ListFormats(ctx, url)
}

// Fetch делегирует движку, подходящему для источника
func (r *EngineRouter) Fetch(ctx context.Context, url string, spec FetchSpec) (string, error) {
	return r.pick(url).Fetch(ctx, url, spec)
}
