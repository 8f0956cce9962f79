package services

import (
	"log"
	"regexp"
	"strings"
)

// PlatformType представляет тип платформы
type PlatformType string

const (
	PlatformYouTube       PlatformType = "youtube"
	PlatformYouTubeShorts PlatformType = "youtube_shorts"
	PlatformTikTok        PlatformType = "tiktok"
	PlatformInstagram     PlatformType = "instagram"
	PlatformTwitter       PlatformType = "twitter"
	PlatformReddit        PlatformType = "reddit"
	PlatformUnknown       PlatformType = "unknown"
)

// PlatformInfo содержит информацию о платформе
type PlatformInfo struct {
	Type        PlatformType
	VideoID     string
	DisplayName string
	Supported   bool
}

// VideoKey — стабильный ключ видео для кэша доставленных файлов
func (p *PlatformInfo) VideoKey(url string) string {
	if p.VideoID != "" {
		return string(p.Type) + ":" + p.VideoID
	}
	return url
}

// PlatformDetector определяет платформу по URL и служит шлюзом
// allow-листа: извлечение не вызывается для неподдерживаемых источников
type PlatformDetector struct {
	patterns map[PlatformType][]*regexp.Regexp
	allowed  map[PlatformType]bool // nil = разрешены все известные
}

var platformPatterns = map[PlatformType][]string{
	PlatformYouTube: {
		`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`,
		`youtube\.com/embed/([a-zA-Z0-9_-]{11})`,
		`youtu\.be/([a-zA-Z0-9_-]{11})`,
	},
	PlatformYouTubeShorts: {
		`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`,
	},
	PlatformTikTok: {
		`tiktok\.com/@[^/]+/video/(\d+)`,
		`vm\.tiktok\.com/([a-zA-Z0-9]+)`,
		`tiktok\.com/t/([a-zA-Z0-9]+)`,
	},
	PlatformInstagram: {
		`instagram\.com/p/([a-zA-Z0-9_-]+)`,
		`instagram\.com/reel/([a-zA-Z0-9_-]+)`,
		`instagram\.com/tv/([a-zA-Z0-9_-]+)`,
	},
	PlatformTwitter: {
		`twitter\.com/\w+/status/(\d+)`,
		`x\.com/\w+/status/(\d+)`,
	},
	PlatformReddit: {
		`reddit\.com/r/[^/]+/comments/([a-zA-Z0-9]+)`,
		`v\.redd\.it/([a-zA-Z0-9]+)`,
	},
}

// NewPlatformDetector создает детектор. allowedPlatforms — ключи платформ
// из конфигурации; пустой список разрешает все известные платформы.
func NewPlatformDetector(allowedPlatforms []string) *PlatformDetector {
	compiled := make(map[PlatformType][]*regexp.Regexp, len(platformPatterns))
	for platformType, patterns := range platformPatterns {
		for _, pattern := range patterns {
			compiled[platformType] = append(compiled[platformType], regexp.MustCompile(pattern))
		}
	}

	var allowed map[PlatformType]bool
	if len(allowedPlatforms) > 0 {
		allowed = make(map[PlatformType]bool, len(allowedPlatforms))
		for _, name := range allowedPlatforms {
			allowed[PlatformType(strings.ToLower(strings.TrimSpace(name)))] = true
		}
	}

	return &PlatformDetector{
		patterns: compiled,
		allowed:  allowed,
	}
}

// DetectPlatform определяет платформу по URL
func (pd *PlatformDetector) DetectPlatform(url string) *PlatformInfo {
	url = strings.TrimSpace(url)

	for platformType, patterns := range pd.patterns {
		for _, re := range patterns {
			matches := re.FindStringSubmatch(url)
			if len(matches) > 1 {
				return &PlatformInfo{
					Type:        platformType,
					VideoID:     matches[1],
					DisplayName: displayNames[platformType],
					Supported:   pd.isAllowed(platformType),
				}
			}
		}
	}

	return &PlatformInfo{
		Type:        PlatformUnknown,
		DisplayName: displayNames[PlatformUnknown],
		Supported:   false,
	}
}

func (pd *PlatformDetector) isAllowed(platformType PlatformType) bool {
	if pd.allowed == nil {
		return true
	}
	// Shorts проходят по общему youtube-ключу
	if platformType == PlatformYouTubeShorts {
		return pd.allowed[PlatformYouTube] || pd.allowed[PlatformYouTubeShorts]
	}
	return pd.allowed[platformType]
}

var displayNames = map[PlatformType]string{
	PlatformYouTube:       "YouTube",
	PlatformYouTubeShorts: "YouTube Shorts",
	PlatformTikTok:        "TikTok",
	PlatformInstagram:     "Instagram",
	PlatformTwitter:       "Twitter/X",
	PlatformReddit:        "Reddit",
	PlatformUnknown:       "Неизвестная платформа",
}

// LogPlatformInfo пишет результат детекции в лог
func (pd *PlatformDetector) LogPlatformInfo(info *PlatformInfo, url string) {
	if info.Supported {
		log.Printf("🎯 Платформа: %s (ID: %s) для %s", info.DisplayName, info.VideoID, url)
	} else {
		log.Printf("🚫 Неподдерживаемая платформа для %s", url)
	}
}
