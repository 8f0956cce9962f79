package config

import (
	"os"
	"strings"
)

// ProxyConfig содержит настройки прокси
type ProxyConfig struct {
	UseProxy bool
	ProxyURL string
	NoProxy  []string
}

// LoadProxyConfig загружает конфигурацию прокси из переменных окружения
func LoadProxyConfig() *ProxyConfig {
	useProxy := strings.ToLower(os.Getenv("USE_PROXY")) == "true"
	proxyURL := os.Getenv("PROXY_URL")
	if proxyURL == "" {
		proxyURL = "socks5h://127.0.0.1:1080"
	}

	noProxy := os.Getenv("NO_PROXY")
	if noProxy == "" {
		noProxy = "localhost,127.0.0.1,172.16.0.0/12,192.168.0.0/16"
	}

	return &ProxyConfig{
		UseProxy: useProxy,
		ProxyURL: proxyURL,
		NoProxy:  strings.Split(noProxy, ","),
	}
}

// GetYtDlpArgs возвращает аргументы прокси для yt-dlp
func (p *ProxyConfig) GetYtDlpArgs() []string {
	if !p.UseProxy {
		return []string{}
	}

	return []string{"--proxy", p.ProxyURL}
}
