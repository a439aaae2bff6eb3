package urlmeta

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Metadata struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Price       *string `json:"price"`
	Currency    *string `json:"currency"`
}

type document struct {
	root *html.Node
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func (d *document) find(match func(n *html.Node) bool) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && match(n) {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(d.root)
}

func (d *document) meta(attrKey, attrVal string) (string, bool) {
	n := d.find(func(n *html.Node) bool {
		if n.DataAtom != atom.Meta {
			return false
		}
		v, ok := attr(n, attrKey)
		return ok && strings.EqualFold(v, attrVal)
	})
	if n == nil {
		return "", false
	}
	content, ok := attr(n, "content")
	content = strings.TrimSpace(content)
	return content, ok && content != ""
}

func (d *document) span(match func(n *html.Node) bool) *html.Node {
	return d.find(func(n *html.Node) bool {
		return n.DataAtom == atom.Span && match(n)
	})
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

var priceClass = regexp.MustCompile(`(?i)price`)

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParseHTML извлекает метаданные товара: сначала Open Graph, затем обычные
// теги и цена в тексте страницы, затем правила популярных магазинов.
func ParseHTML(pageURL string, r io.Reader) (*Metadata, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &document{root: root}
	md := &Metadata{}

	if v, ok := d.meta("property", "og:title"); ok {
		md.Title = strPtr(v)
	}
	if v, ok := d.meta("property", "og:description"); ok {
		md.Description = strPtr(v)
	}
	if v, ok := d.meta("property", "og:image"); ok {
		md.ImageURL = strPtr(resolve(pageURL, v))
	}
	if v, ok := d.meta("property", "og:price:amount"); ok {
		md.Price = strPtr(v)
		if c, ok := d.meta("property", "og:price:currency"); ok {
			md.Currency = strPtr(strings.ToUpper(c))
		}
	}

	if md.Title == nil {
		if n := d.find(func(n *html.Node) bool { return n.DataAtom == atom.Title }); n != nil {
			md.Title = strPtr(textOf(n))
		}
	}
	if md.Description == nil {
		if v, ok := d.meta("name", "description"); ok {
			md.Description = strPtr(v)
		}
	}

	if md.Price == nil {
		if p, c, ok := findPriceInText(textOf(root)); ok {
			md.Price, md.Currency = strPtr(p), strPtr(c)
		}
	}

	applyShopRules(pageURL, d, md)
	return md, nil
}

func applyShopRules(pageURL string, d *document, md *Metadata) {
	lower := strings.ToLower(pageURL)

	var (
		n             *html.Node
		forceCurrency string
	)
	switch {
	case strings.Contains(lower, "ozon.ru"):
		n = d.span(func(n *html.Node) bool {
			v, _ := attr(n, "class")
			return priceClass.MatchString(v)
		})
	case strings.Contains(lower, "wildberries.ru"):
		n = d.span(func(n *html.Node) bool { return hasClass(n, "price-block__final-price") })
	case strings.Contains(lower, "market.yandex.ru"):
		n = d.span(func(n *html.Node) bool {
			v, _ := attr(n, "data-auto")
			return v == "snippet-price-current"
		})
	case strings.Contains(lower, "amazon."):
		n = d.span(func(n *html.Node) bool { return hasClass(n, "a-price-whole") })
		forceCurrency = "USD"
	}
	if n == nil {
		return
	}
	p, c, ok := ParsePrice(textOf(n))
	if !ok {
		return
	}
	if forceCurrency != "" {
		c = forceCurrency
	}
	md.Price, md.Currency = strPtr(p), strPtr(c)
}

func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
