package services

// RawFormat отражает один объект formats из JSON-вывода yt-dlp
type RawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height"`
	TBR            *float64 `json:"tbr"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
}

// MediaKind различает видео- и аудиоформаты
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// VideoFormat представляет нормализованный формат видео или аудио
type VideoFormat struct {
	ID        string
	Extension string
	Height    int // 0 = неизвестно или аудио
	Bitrate   float64
	FileSize  int64 // 0 = неизвестно, может быть приблизительным
	Kind      MediaKind
	HasAudio  bool
}

func hasStream(codec string) bool {
	return codec != "" && codec != "none"
}

// Normalize приводит сырые форматы yt-dlp к каноническому виду.
// Записи без идентификатора или без единого медиапотока отбрасываются.
// Пустой результат означает "нечего скачивать" — вызывающий код не
// должен повторять попытку автоматически.
func Normalize(raw []RawFormat) []VideoFormat {
	var formats []VideoFormat

	for _, r := range raw {
		if r.FormatID == "" {
			continue
		}
		if !hasStream(r.VCodec) && !hasStream(r.ACodec) {
			continue
		}

		f := VideoFormat{
			ID:        r.FormatID,
			Extension: r.Ext,
			Kind:      MediaAudio,
			HasAudio:  hasStream(r.ACodec),
		}
		if hasStream(r.VCodec) {
			f.Kind = MediaVideo
		}
		if r.Height != nil {
			f.Height = *r.Height
		}
		if r.TBR != nil {
			f.Bitrate = *r.TBR
		}
		if r.Filesize != nil {
			f.FileSize = *r.Filesize
		} else if r.FilesizeApprox != nil {
			f.FileSize = *r.FilesizeApprox
		}

		formats = append(formats, f)
	}

	return formats
}

// HasAudioStream сообщает, есть ли среди форматов хоть один аудиопоток
func HasAudioStream(formats []VideoFormat) bool {
	for _, f := range formats {
		if f.HasAudio {
			return true
		}
	}
	return false
}
