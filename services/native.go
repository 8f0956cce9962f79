package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mediaBot/utils"

	"github.com/kkdai/youtube/v2"
)

// NativeYouTubeExtractor — встроенный движок для YouTube без внешнего
// yt-dlp: потоки качаются библиотекой kkdai/youtube, склейка — ffmpeg.
// Включается флагом USE_NATIVE_YOUTUBE и применим только к YouTube.
type NativeYouTubeExtractor struct{}

// NewNativeYouTubeExtractor создает нативный движок
func NewNativeYouTubeExtractor() *NativeYouTubeExtractor {
	return &NativeYouTubeExtractor{}
}

// ListFormats отдает форматы видео в каноническом сыром виде
func (e *NativeYouTubeExtractor) ListFormats(ctx context.Context, url string) ([]RawFormat, error) {
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	raw := make([]RawFormat, 0, len(video.Formats))
	for _, f := range video.Formats {
		height := parseHeight(f.QualityLabel)
		bitrate := float64(f.Bitrate) / 1000
		size := f.ContentLength

		rf := RawFormat{
			FormatID: strconv.Itoa(f.ItagNo),
			Ext:      extFromMime(f.MimeType),
		}
		if strings.Contains(f.MimeType, "video") {
			rf.VCodec = f.MimeType
			rf.Height = &height
		}
		if f.AudioChannels > 0 || strings.Contains(f.MimeType, "audio") {
			rf.ACodec = f.MimeType
		}
		rf.TBR = &bitrate
		if size > 0 {
			rf.Filesize = &size
		}
		raw = append(raw, rf)
	}

	return raw, nil
}

// Fetch скачивает выбранный поток; для видео докачивает лучшее аудио и
// склеивает через ffmpeg, для аудио при необходимости конвертирует в mp3
func (e *NativeYouTubeExtractor) Fetch(ctx context.Context, url string, spec FetchSpec) (string, error) {
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	safeTitle := utils.SanitizeFilename(video.Title)

	if spec.BestAudio {
		return e.fetchAudio(ctx, client, video, spec, safeTitle)
	}
	return e.fetchVideo(ctx, client, video, spec, safeTitle)
}

func (e *NativeYouTubeExtractor) fetchVideo(ctx context.Context, client youtube.Client, video *youtube.Video, spec FetchSpec, title string) (string, error) {
	itag, err := strconv.Atoi(spec.FormatID)
	if err != nil {
		return "", fmt.Errorf("%w: некорректный itag %q", ErrNoMatchingFormat, spec.FormatID)
	}

	var videoFormat *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == itag {
			videoFormat = &video.Formats[i]
			break
		}
	}
	if videoFormat == nil {
		return "", fmt.Errorf("%w: itag %d", ErrNoMatchingFormat, itag)
	}

	audioFormat := findBestAudioFormat(video.Formats)

	// Поток уже со звуком — склейка не нужна
	if audioFormat == nil || videoFormat.AudioChannels > 0 {
		out := filepath.Join(spec.OutDir, title+".mp4")
		if err := downloadStream(ctx, client, video, videoFormat, out); err != nil {
			return "", err
		}
		return out, nil
	}

	videoTemp := filepath.Join(spec.OutDir, "v_stream.mp4")
	audioTemp := filepath.Join(spec.OutDir, "a_stream.m4a")

	var wg sync.WaitGroup
	var errV, errA error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errV = downloadStream(ctx, client, video, videoFormat, videoTemp)
	}()
	go func() {
		defer wg.Done()
		errA = downloadStream(ctx, client, video, audioFormat, audioTemp)
	}()
	wg.Wait()

	if errV != nil {
		return "", errV
	}
	if errA != nil {
		return "", errA
	}

	out := filepath.Join(spec.OutDir, title+".mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", videoTemp, "-i", audioTemp, "-c", "copy", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: ffmpeg: %s", ErrMissingDependency, string(output))
	}

	os.Remove(videoTemp)
	os.Remove(audioTemp)

	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("получен пустой файл")
	}
	return out, nil
}

func (e *NativeYouTubeExtractor) fetchAudio(ctx context.Context, client youtube.Client, video *youtube.Video, spec FetchSpec, title string) (string, error) {
	audioFormat := findBestAudioFormat(video.Formats)
	if audioFormat == nil {
		return "", fmt.Errorf("%w: аудиопоток отсутствует", ErrNoMatchingFormat)
	}

	rawPath := filepath.Join(spec.OutDir, "a_raw.m4a")
	if err := downloadStream(ctx, client, video, audioFormat, rawPath); err != nil {
		return "", err
	}

	if spec.AudioTarget == "m4a" {
		out := filepath.Join(spec.OutDir, title+".m4a")
		if err := os.Rename(rawPath, out); err != nil {
			return "", fmt.Errorf("ошибка переименования аудио: %v", err)
		}
		return out, nil
	}

	out := filepath.Join(spec.OutDir, title+"."+spec.AudioTarget)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", rawPath, "-b:a", "192k", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: ffmpeg: %s", ErrMissingDependency, string(output))
	}

	os.Remove(rawPath)
	return out, nil
}

// downloadStream качает один поток в файл
func downloadStream(ctx context.Context, client youtube.Client, video *youtube.Video, format *youtube.Format, path string) error {
	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("ошибка открытия потока: %v", err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла: %v", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		return fmt.Errorf("ошибка загрузки потока: %v", err)
	}
	return nil
}

// findBestAudioFormat выбирает лучший аудиопоток, предпочитая mp4-контейнер
func findBestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.Contains(f.MimeType, "audio") {
			continue
		}
		if best == nil || (strings.Contains(f.MimeType, "mp4") && !strings.Contains(best.MimeType, "mp4")) {
			best = f
		}
	}
	return best
}

// parseHeight извлекает разрешение из метки качества вида "1080p60"
func parseHeight(q string) int {
	digits := ""
	for _, c := range q {
		if c >= '0' && c <= '9' {
			digits += string(c)
		} else if digits != "" {
			break
		}
	}
	val, _ := strconv.Atoi(digits)
	return val
}

// extFromMime выводит расширение контейнера из MIME-типа
func extFromMime(mime string) string {
	switch {
	case strings.Contains(mime, "mp4"):
		return "mp4"
	case strings.Contains(mime, "webm"):
		return "webm"
	default:
		log.Printf("⚠️ Неизвестный MIME-тип формата: %s", mime)
		return "mp4"
	}
}
