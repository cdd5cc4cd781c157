// Package ingest normalizes scraped product batches and loads them into the
// partner store. Scrapers emit inconsistent prices, currency symbols and URLs;
// everything is cleaned here so the rest of the service only sees ISO currency
// codes and positive numeric prices.
package ingest

import (
	"strconv"
	"strings"
)

// domainCountry maps scraper source domains to ISO 3166-1 alpha-2 codes.
var domainCountry = map[string]string{
	// UAE sites
	"jumbo.ae":     "AE",
	"noon.com":     "AE",
	"sharafdg.com": "AE",
	"amazon.ae":    "AE",

	// Tunisia sites
	"jumia.com.tn":      "TN",
	"tunisianet.com.tn": "TN",
	"mytek.tn":          "TN",
}

// allowedCurrencies is the set of ISO codes the service accepts.
var allowedCurrencies = map[string]bool{
	"AED": true,
	"TND": true,
}

// currencyNormalization maps scraped currency symbols and abbreviations to
// ISO codes. Arabic symbols appear both bare and with trailing marks.
var currencyNormalization = map[string]string{
	// AED (UAE Dirham)
	"AED":      "AED",
	"D":        "AED",
	"د.إ":      "AED",
	"د.إ.‏": "AED",
	"د":        "AED",
	"DH":       "AED",
	"DHM":      "AED",

	// TND (Tunisian Dinar)
	"TND": "TND",
	"DT":  "TND",
	"د.ت": "TND",
	"ت":   "TND",
	"DIN": "TND",
}

// CountryFromDomain maps a scraper domain to its country code. Unknown
// domains fall back to the TLD, then to AE.
func CountryFromDomain(domain string) string {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))

	if country, ok := domainCountry[domain]; ok {
		return country
	}
	if strings.HasSuffix(domain, ".tn") {
		return "TN"
	}
	if strings.HasSuffix(domain, ".ae") {
		return "AE"
	}
	return "AE"
}

// NormalizeCurrency maps a scraped currency symbol to an ISO code. Returns
// false for empty, unknown or unsupported currencies.
func NormalizeCurrency(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if code, ok := currencyNormalization[cleaned]; ok {
		return code, allowedCurrencies[code]
	}

	// Arabic symbols are case-sensitive; retry with original casing.
	cleanedOriginal := strings.TrimSpace(raw)
	if code, ok := currencyNormalization[cleanedOriginal]; ok {
		return code, allowedCurrencies[code]
	}

	return "", false
}

// ParsePrice extracts a positive numeric price from any scraped format:
// "1,299.00", "839,000", "1 199,000". Returns false for free, missing or
// unparseable values.
func ParsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}

	// Strip every separator: commas, spaces, currency fragments. Only digits
	// and the decimal point survive.
	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			cleaned.WriteRune(r)
		}
	}
	if cleaned.Len() == 0 {
		return 0, false
	}

	price, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// NormalizeURL repairs malformed scraper URLs ("httpswww.jumbo.ae") and
// rejects placeholders. Returns false when no usable URL remains.
func NormalizeURL(raw string) (string, bool) {
	url := strings.TrimSpace(raw)
	if url == "" || url == "Unknown URL" || url == "unknown" {
		return "", false
	}

	switch {
	case strings.HasPrefix(url, "httpswww."):
		url = strings.Replace(url, "httpswww.", "https://www.", 1)
	case strings.HasPrefix(url, "httpwww."):
		url = strings.Replace(url, "httpwww.", "http://www.", 1)
	case strings.HasPrefix(url, "https") && !strings.Contains(url, "://"):
		url = strings.Replace(url, "https", "https://", 1)
	case strings.HasPrefix(url, "http") && !strings.Contains(url, "://"):
		url = strings.Replace(url, "http", "http://", 1)
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", false
	}
	return url, true
}

// PartnerNameFromDomain derives a display name from a scraper domain.
func PartnerNameFromDomain(domain string) string {
	name := strings.TrimPrefix(strings.ToLower(domain), "www.")
	name = strings.TrimSuffix(name, ".com")
	if strings.Contains(name, "noon") {
		return "Noon"
	}
	return titleCase(name)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}
