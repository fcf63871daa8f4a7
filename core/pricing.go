package core

import "time"

// Season is the calendar bucket used for seasonal price adjustment.
type Season string

const (
	SeasonPeak          Season = "peak"
	SeasonSecondaryPeak Season = "secondary_peak"
	SeasonOff           Season = "off_season"
	SeasonNormal        Season = "normal"
)

// MarketPriceEstimate is a deterministic reference price derived from
// category, location and season. It is computed on demand and never stored.
type MarketPriceEstimate struct {
	Category           string  `json:"category"`
	Location           string  `json:"location"`
	Season             Season  `json:"season"`
	BasePrice          float64 `json:"basePrice"`
	LocationMultiplier float64 `json:"locationMultiplier"`
	SeasonMultiplier   float64 `json:"seasonMultiplier"`
	EstimatedPrice     float64 `json:"estimatedPrice"`
	TableVersion       string  `json:"tableVersion"`
}

// PricingModel computes market reference prices. Implementations must be pure.
type PricingModel interface {
	Estimate(category, location string, at time.Time) MarketPriceEstimate
}
