package urlmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"wishlist-service/internal/metrics"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxBodyBytes = 4 << 20
	sharedTTL    = time.Hour
)

var (
	ErrInvalidURL  = errors.New("invalid url")
	ErrFetchFailed = errors.New("could not fetch url")
	ErrTimeout     = errors.New("request timeout")
)

// ErrBlockedAddress: адрес указывает во внутреннюю сеть.
var ErrBlockedAddress = fmt.Errorf("%w: address not allowed", ErrInvalidURL)

// SharedCache: общий кэш между экземплярами (Redis); может отсутствовать.
type SharedCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Parser struct {
	client *http.Client
	local  *lru.Cache
	shared SharedCache
	log    *zap.Logger

	// allowPrivate снимает запрет на внутренние адреса (локальные тесты).
	allowPrivate bool
}

func NewParser(timeout time.Duration, cacheSize int, shared SharedCache, log *zap.Logger) (*Parser, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	local, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		local:  local,
		shared: shared,
		log:    log,
	}
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: p.checkDial,
	}
	p.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return p, nil
}

// checkDial вызывается для каждого соединения, включая редиректы, уже с
// разрешённым IP.
func (p *Parser) checkDial(_, address string, _ syscall.RawConn) error {
	if p.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return ErrBlockedAddress
	}
	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return ErrBlockedAddress
	}
	return nil
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

func (p *Parser) Parse(ctx context.Context, rawURL string) (*Metadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		metrics.URLParse.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidURL
	}
	key := u.String()

	if v, ok := p.local.Get(key); ok {
		metrics.URLParse.WithLabelValues("cache_hit").Inc()
		return v.(*Metadata), nil
	}
	if md := p.fromShared(ctx, key); md != nil {
		p.local.Add(key, md)
		metrics.URLParse.WithLabelValues("cache_hit").Inc()
		return md, nil
	}

	md, err := p.fetch(ctx, key)
	if err != nil {
		metrics.URLParse.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.URLParse.WithLabelValues("ok").Inc()

	p.local.Add(key, md)
	p.toShared(ctx, key, md)
	return md, nil
}

func (p *Parser) fetch(ctx context.Context, target string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrInvalidURL
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return nil, ErrBlockedAddress
		}
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	md, err := ParseHTML(finalURL, io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return md, nil
}

func (p *Parser) fromShared(ctx context.Context, key string) *Metadata {
	if p.shared == nil {
		return nil
	}
	raw, ok, err := p.shared.Get(ctx, "urlmeta:"+key)
	if err != nil {
		p.log.Warn("url metadata cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var md Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil
	}
	return &md
}

func (p *Parser) toShared(ctx context.Context, key string, md *Metadata) {
	if p.shared == nil {
		return
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return
	}
	if err := p.shared.Set(ctx, "urlmeta:"+key, raw, sharedTTL); err != nil {
		p.log.Warn("url metadata cache write failed", zap.Error(err))
	}
}
