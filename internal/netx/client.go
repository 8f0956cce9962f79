package netx

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"mediaBot/config"

	xproxy "golang.org/x/net/proxy"
)

func hostInNoProxy(host string, noProxy []string) bool {
	host = strings.ToLower(host)
	for _, token := range noProxy {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		// точные хосты/домены
		if host == token || strings.HasSuffix(host, "."+token) {
			return true
		}
		// простые маски по подсетям
		if ip := net.ParseIP(host); ip != nil {
			_, cidr, err := net.ParseCIDR(token)
			if err == nil && cidr.Contains(ip) {
				return true
			}
		}
	}
	// дефолтные локальные
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() {
			return true
		}
	}
	return host == "localhost"
}

// NewHTTPClient создает клиент для Telegram API: локальные адреса мимо
// прокси, остальное через SOCKS5, если прокси включен.
func NewHTTPClient(proxyCfg *config.ProxyConfig, timeout time.Duration) *http.Client {
	baseDialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		Proxy:             nil,
		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
	}

	tr.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		host, _, _ := net.SplitHostPort(address)
		if hostInNoProxy(host, proxyCfg.NoProxy) || !proxyCfg.UseProxy || proxyCfg.ProxyURL == "" {
			return baseDialer.DialContext(ctx, network, address)
		}
		// SOCKS5 с удаленным резолвом: hostname не резолвим на нашей стороне
		socksAddr := strings.TrimPrefix(strings.TrimPrefix(proxyCfg.ProxyURL, "socks5h://"), "socks5://")
		d, err := xproxy.SOCKS5("tcp", socksAddr, nil, baseDialer)
		if err != nil {
			return nil, err
		}
		return d.Dial(network, address)
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}
