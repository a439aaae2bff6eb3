package urlmeta

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in       string
		price    string
		currency string
		ok       bool
	}{
		{"1 299 ₽", "1299", "RUB", true},
		{"Цена: 4 990,50 руб.", "4990.50", "RUB", true},
		{"$19.99", "19.99", "USD", true},
		{"12 345 USD", "12345", "USD", true},
		{"€ 1.234,56", "1234.56", "EUR", true},
		{"бесплатно", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, c, ok := ParsePrice(tt.in)
			if ok != tt.ok || p != tt.price || c != tt.currency {
				t.Fatalf("ParsePrice(%q) = %q, %q, %v; want %q, %q, %v", tt.in, p, c, ok, tt.price, tt.currency, tt.ok)
			}
		})
	}
}

func TestParseHTML_OpenGraph(t *testing.T) {
	page := `<html><head>
<title>Fallback title</title>
<meta property="og:title" content="Наушники X">
<meta property="og:description" content="Беспроводные">
<meta property="og:image" content="/img/x.jpg">
<meta property="og:price:amount" content="7990">
<meta property="og:price:currency" content="rub">
</head><body>Цена: 100 ₽</body></html>`

	md, err := ParseHTML("https://shop.example/p/1", strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if deref(md.Title) != "Наушники X" {
		t.Fatalf("title: %s", deref(md.Title))
	}
	if deref(md.Description) != "Беспроводные" {
		t.Fatalf("description: %s", deref(md.Description))
	}
	if deref(md.ImageURL) != "https://shop.example/img/x.jpg" {
		t.Fatalf("image: %s", deref(md.ImageURL))
	}
	if deref(md.Price) != "7990" || deref(md.Currency) != "RUB" {
		t.Fatalf("price: %s %s", deref(md.Price), deref(md.Currency))
	}
}

func TestParseHTML_Fallbacks(t *testing.T) {
	page := `<html><head>
<title> Простая страница </title>
<meta name="description" content="Описание товара">
<script>var price = "999 ₽";</script>
</head><body><div>Цена: 2 490 руб.</div></body></html>`

	md, err := ParseHTML("https://example.org/item", strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if deref(md.Title) != "Простая страница" {
		t.Fatalf("title: %q", deref(md.Title))
	}
	if deref(md.Description) != "Описание товара" {
		t.Fatalf("description: %q", deref(md.Description))
	}
	if deref(md.Price) != "2490" || deref(md.Currency) != "RUB" {
		t.Fatalf("price: %s %s", deref(md.Price), deref(md.Currency))
	}
	if md.ImageURL != nil {
		t.Fatalf("image should be empty, got %s", deref(md.ImageURL))
	}
}

func TestParseHTML_ShopRules(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		body     string
		price    string
		currency string
	}{
		{
			name:     "wildberries",
			url:      "https://www.wildberries.ru/catalog/1/detail.aspx",
			body:     `<span class="price-block__final-price wallet">1 599 ₽</span>`,
			price:    "1599",
			currency: "RUB",
		},
		{
			name:     "yandex market",
			url:      "https://market.yandex.ru/product/1",
			body:     `<span data-auto="snippet-price-current">3 200 ₽</span>`,
			price:    "3200",
			currency: "RUB",
		},
		{
			name:     "amazon",
			url:      "https://www.amazon.com/dp/B0",
			body:     `<span class="a-price-whole">49.</span>`,
			price:    "49",
			currency: "USD",
		},
		{
			name:     "ozon",
			url:      "https://www.ozon.ru/product/1",
			body:     `<span class="tsHeadline ProductPrice_x">12 990 ₽</span>`,
			price:    "12990",
			currency: "RUB",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseHTML(tt.url, strings.NewReader("<html><body>"+tt.body+"</body></html>"))
			if err != nil {
				t.Fatalf("ParseHTML: %v", err)
			}
			if deref(md.Price) != tt.price || deref(md.Currency) != tt.currency {
				t.Fatalf("got %s %s, want %s %s", deref(md.Price), deref(md.Currency), tt.price, tt.currency)
			}
		})
	}
}

func TestParser_FetchAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent")
		}
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Книга"></head></html>`)
	}))
	defer srv.Close()

	p, err := NewParser(time.Second, 8, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	p.allowPrivate = true

	for i := 0; i < 3; i++ {
		md, err := p.Parse(context.Background(), srv.URL+"/book")
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if deref(md.Title) != "Книга" {
			t.Fatalf("title: %s", deref(md.Title))
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected one upstream request, got %d", n)
	}
}

func TestParser_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	p, err := NewParser(100*time.Millisecond, 8, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	p.allowPrivate = true

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"not a url", "ftp://example.org/file", ErrInvalidURL},
		{"no host", "https://", ErrInvalidURL},
		{"upstream 404", notFound.URL, ErrFetchFailed},
		{"timeout", slow.URL, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(context.Background(), tt.url)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParser_RejectsInternalAddresses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<html><head><title>internal</title></head></html>`)
	}))
	defer srv.Close()

	p, err := NewParser(time.Second, 8, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	_, port, _ := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	targets := []string{
		srv.URL,
		"http://localhost:" + port + "/",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.1/",
		"http://192.168.1.1/",
		"http://0.0.0.0:" + port + "/",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			_, err := p.Parse(context.Background(), target)
			if !errors.Is(err, ErrBlockedAddress) || !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("got %v, want ErrBlockedAddress", err)
			}
		})
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("internal server was reached %d times", n)
	}
}

func TestPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"2a00:1450:4010:c05::64", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.0.10", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::", false},
	}
	for _, tt := range tests {
		if got := publicIP(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("publicIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

type mapCache struct {
	data map[string]string
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func TestParser_UsesSharedCache(t *testing.T) {
	shared := &mapCache{data: map[string]string{
		"urlmeta:https://cached.example/x": `{"title":"Из кэша","description":null,"image_url":null,"price":"10","currency":"RUB"}`,
	}}
	p, err := NewParser(time.Second, 8, shared, zap.NewNop())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	md, err := p.Parse(context.Background(), "https://cached.example/x")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if deref(md.Title) != "Из кэша" || deref(md.Price) != "10" {
		t.Fatalf("unexpected metadata: %+v", md)
	}
}
