package processor

import (
	"math"
	"strings"
)

// rateMatrix maps a risk profile and value bucket to the annual premium rate.
var rateMatrix = map[string]map[string]float64{
	// UAE
	"ELECTRONIC_PRODUCTS":       {"L": 0.08, "M": 0.095, "H": 0.11},
	"MOBILE_PERSONAL":           {"L": 0.08, "M": 0.095, "H": 0.11},
	"COMPUTING_GAMING":          {"L": 0.07, "M": 0.085, "H": 0.10},
	"HOME_AV":                   {"L": 0.06, "M": 0.075, "H": 0.09},
	"GARDEN_DIY_ESSENTIAL":      {"L": 0.07, "M": 0.085, "H": 0.10},
	"SPORT_OUTDOOR_ESSENTIAL":   {"L": 0.08, "M": 0.095, "H": 0.11},
	"BABY_EQUIPMENT_ESSENTIAL":  {"L": 0.07, "M": 0.085, "H": 0.10},
	"HOME_APPLIANCES":           {"L": 0.05, "M": 0.06, "H": 0.07},
	"HEALTH_WELLNESS_ESSENTIAL": {"L": 0.07, "M": 0.085, "H": 0.10},
	"MICRO_MOBILITY_ESSENTIAL":  {"L": 0.09, "M": 0.11, "H": 0.13},
	"BAGS_LUGGAGE_ESSENTIAL":    {"L": 0.06, "M": 0.075, "H": 0.09},
	"LIVING_FURNITURE_ESSENTIAL": {"L": 0.06, "M": 0.075, "H": 0.09},
	"OPTICAL_HEARING_ESSENTIAL":  {"L": 0.07, "M": 0.085, "H": 0.10},
	"PERSONAL_CARE_DEVICES":      {"L": 0.07, "M": 0.085, "H": 0.10},
	"SOUND_MUSIC_ESSENTIAL":      {"L": 0.08, "M": 0.095, "H": 0.11},
	"OPULENCIA_PREMIUM":          {"L": 0.10, "M": 0.12, "H": 0.15, "XH": 0.15},
	"TEXTILE_FOOTWEAR_ZARA":      {"L": 0.05, "M": 0.06, "H": 0.07},
	"SPECIALTY":                  {"L": 0.09, "M": 0.11, "H": 0.13},

	// Tunisia
	"ELECTRONIC_PRODUCTS_TN": {"L": 0.08, "M": 0.095, "H": 0.11},
	"GARDEN_DIY_TN":          {"L": 0.07, "M": 0.085, "H": 0.10},
	"SPORT_OUTDOOR_TN":       {"L": 0.08, "M": 0.095, "H": 0.11},
	"BABY_EQUIPMENT_TN":      {"L": 0.07, "M": 0.085, "H": 0.10},
	"HOME_APPLIANCES_TN":     {"L": 0.05, "M": 0.06, "H": 0.07},
	"HEALTH_WELLNESS_TN":     {"L": 0.07, "M": 0.085, "H": 0.10},
	"FURNITURE_TN":           {"L": 0.06, "M": 0.075, "H": 0.09},
}

type bucketLimit struct {
	limit float64
	label string
}

var bucketsTN = map[string][]bucketLimit{
	"ELECTRONIC_PRODUCTS_TN": {{1500, "L"}, {4000, "M"}, {8000, "H"}},
	"BABY_EQUIPMENT_TN":      {{400, "L"}, {1200, "M"}, {3000, "H"}},
	"FURNITURE_TN":           {{800, "L"}, {2000, "M"}, {5000, "H"}},
	"GARDEN_DIY_TN":          {{500, "L"}, {1500, "M"}, {3500, "H"}},
	"HEALTH_WELLNESS_TN":     {{300, "L"}, {900, "M"}, {2000, "H"}},
	"HOME_APPLIANCES_TN":     {{2000, "L"}, {4500, "M"}, {7500, "H"}},
	"SPORT_OUTDOOR_TN":       {{400, "L"}, {1200, "M"}, {3000, "H"}},
}

var bucketsUAE = map[string][]bucketLimit{
	"HOME_APPLIANCES":   {{2000, "L"}, {6000, "M"}, {11000, "H"}},
	"OPULENCIA_PREMIUM": {{3000, "M"}, {10000, "M"}, {50000, "H"}, {300000, "XH"}},
}

var bucketsUAEDefault = []bucketLimit{
	{2000, "L"}, {6000, "M"}, {math.Inf(1), "H"},
}

// MarketForCurrency maps a product currency to the market its rates live in.
func MarketForCurrency(currency string) string {
	if currency == "TND" {
		return "Tunisia"
	}
	return "UAE"
}

// priceBucket classifies a product value into an L/M/H bucket for the given
// market and risk profile.
func priceBucket(value float64, market, riskProfile string) string {
	if isTunisia(market) {
		if buckets, ok := bucketsTN[riskProfile]; ok {
			for _, b := range buckets {
				if value <= b.limit {
					return b.label
				}
			}
			return buckets[len(buckets)-1].label
		}
		switch {
		case value <= 400:
			return "L"
		case value <= 1200:
			return "M"
		default:
			return "H"
		}
	}

	buckets, ok := bucketsUAE[riskProfile]
	if !ok {
		buckets = bucketsUAEDefault
	}
	for _, b := range buckets {
		if value <= b.limit {
			return b.label
		}
	}
	return "H"
}

func isTunisia(market string) bool {
	m := strings.ToLower(market)
	return strings.Contains(m, "tunisia") || strings.Contains(m, "tn")
}

// AnnualPremium computes the 12-month premium for a product value under a
// risk profile. Returns false when the profile has no rate for the value's
// bucket.
func AnnualPremium(riskProfile string, value float64, market string) (float64, bool) {
	if value <= 0 || riskProfile == "" {
		return 0, false
	}
	bucket := priceBucket(value, market, riskProfile)
	rate, ok := rateMatrix[riskProfile][bucket]
	if !ok {
		return 0, false
	}
	return round2(value * rate), true
}

// MonthlyPremium is the 12-month premium spread over monthly installments.
func MonthlyPremium(riskProfile string, value float64, market string) (float64, bool) {
	annual, ok := AnnualPremium(riskProfile, value, market)
	if !ok {
		return 0, false
	}
	return round2(annual / 12), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
