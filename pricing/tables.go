package pricing

import "github.com/hupe1980/negotiate/core"

// TableVersion identifies the revision of the built-in market tables. It is
// echoed on every estimate so downstream consumers can tell which data
// produced a price.
const TableVersion = "2024.1"

// DefaultCategory is the key used when a category is unknown.
const DefaultCategory = "default"

// LocationRate is one entry of the ordered location table. Keys are matched
// as case-insensitive substrings of the caller's location, first match wins.
type LocationRate struct {
	Key        string
	Multiplier float64
}

// SeasonRate maps a season to its price multiplier.
type SeasonRate struct {
	Season     core.Season
	Multiplier float64
}

// Tables groups the lookup data used by Model. Every table carries a default
// so lookups never come back empty.
type Tables struct {
	Version           string
	BasePrices        map[string]float64
	Locations         []LocationRate
	DefaultLocation   float64
	SeasonByMonth     [13]core.Season // index 1..12
	SeasonMultipliers map[core.Season]float64
}

// DefaultTables returns the built-in market data (prices in NPR).
func DefaultTables() Tables {
	t := Tables{
		Version: TableVersion,
		BasePrices: map[string]float64{
			"wedding":     500000,
			"engagement":  250000,
			"reception":   350000,
			"birthday":    75000,
			"anniversary": 100000,
			"corporate":   300000,
			"conference":  400000,
			"concert":     600000,
			"festival":    350000,
			"party":       80000,
			"workshop":    60000,

			DefaultCategory: 150000,
		},
		Locations: []LocationRate{
			{Key: "kathmandu", Multiplier: 1.3},
			{Key: "lalitpur", Multiplier: 1.2},
			{Key: "bhaktapur", Multiplier: 1.15},
			{Key: "pokhara", Multiplier: 1.1},
			{Key: "chitwan", Multiplier: 1.0},
			{Key: "biratnagar", Multiplier: 0.95},
			{Key: "butwal", Multiplier: 0.9},
			{Key: "dharan", Multiplier: 0.9},
		},
		DefaultLocation: 1.0,
		SeasonMultipliers: map[core.Season]float64{
			core.SeasonPeak:          1.3,
			core.SeasonSecondaryPeak: 1.15,
			core.SeasonOff:           0.85,
			core.SeasonNormal:        1.0,
		},
	}
	for m := 1; m <= 12; m++ {
		t.SeasonByMonth[m] = core.SeasonNormal
	}
	// wedding season
	for _, m := range []int{11, 12, 1, 2} {
		t.SeasonByMonth[m] = core.SeasonPeak
	}
	// festival season
	for _, m := range []int{9, 10} {
		t.SeasonByMonth[m] = core.SeasonSecondaryPeak
	}
	// monsoon
	for _, m := range []int{6, 7, 8} {
		t.SeasonByMonth[m] = core.SeasonOff
	}
	return t
}
