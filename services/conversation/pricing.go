package conversation

import (
	"github.com/Achutaiscool/Twenty44-WA-bot/config"
)

// Add-on codes offered at the add-ons step.
const (
	AddOnRacket   = "addon_racket"
	AddOnShuttles = "addon_shuttles"
	AddOnCoach    = "addon_coach"
	AddOnNone     = "addon_none"
)

// PricingConfig is the price table, injected at construction; amounts in
// minor currency units.
type PricingConfig struct {
	CourtBaseRate int64
	PerPlayerRate int64
	AddOnPrices   map[string]int64
	Currency      string
}

// PricingFromConfig builds the price table from AppConfig.
func PricingFromConfig() PricingConfig {
	return PricingConfig{
		CourtBaseRate: config.AppConfig.CourtBaseRate,
		PerPlayerRate: config.AppConfig.PerPlayerRate,
		AddOnPrices: map[string]int64{
			AddOnRacket:   config.AppConfig.RacketPrice,
			AddOnShuttles: config.AppConfig.ShuttlesPrice,
			AddOnCoach:    config.AppConfig.CoachPrice,
		},
		Currency: config.AppConfig.Currency,
	}
}

// Total computes the booking amount. Pure function of its inputs: the same
// player count and add-on set always price identically.
func (p PricingConfig) Total(playerCount int, addOns []string) int64 {
	total := p.CourtBaseRate + p.PerPlayerRate*int64(playerCount)
	for _, code := range addOns {
		total += p.AddOnPrices[code]
	}
	return total
}
