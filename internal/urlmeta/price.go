package urlmeta

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonPriceChars = regexp.MustCompile(`[^\d.,]`)

	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:цена|price)[:\s]*([0-9\s,.]+)\s*(?:₽|руб|rub|\$|usd|€|eur)`),
		regexp.MustCompile(`(?i)([0-9\s,.]+)\s*(?:₽|руб|rub|\$|usd|€|eur)`),
	}
)

// ParsePrice вытаскивает число и валюту из строки вида "1 299,00 ₽".
// Запятая считается десятичным разделителем; если точек несколько,
// десятичной считается последняя.
func ParsePrice(text string) (price string, currency string, ok bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return "", "", false
	}
	cleaned = strings.TrimRight(strings.ReplaceAll(cleaned, ",", "."), ".")
	if parts := strings.Split(cleaned, "."); len(parts) > 2 {
		cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	if cleaned == "" || strings.HasPrefix(cleaned, ".") {
		return "", "", false
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "", "", false
	}
	return cleaned, detectCurrency(text), true
}

func detectCurrency(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "$") || strings.Contains(lower, "usd"):
		return "USD"
	case strings.Contains(text, "€") || strings.Contains(lower, "eur"):
		return "EUR"
	default:
		return "RUB"
	}
}

// findPriceInText ищет первую цену по шаблонам в тексте страницы.
func findPriceInText(text string) (string, string, bool) {
	for _, re := range pricePatterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		if p, c, ok := ParsePrice(m); ok {
			return p, c, true
		}
	}
	return "", "", false
}
