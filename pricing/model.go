package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/shopspring/decimal"
)

// Model is the table-driven MarketPricingModel. It is pure and safe for
// concurrent use; the reference date is always supplied by the caller.
type Model struct {
	tables Tables
}

var _ core.PricingModel = (*Model)(nil)

// Options configures a Model.
type Options struct {
	// Tables overrides the built-in market data.
	Tables Tables
}

// NewModel creates a pricing model backed by DefaultTables unless overridden.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{Tables: DefaultTables()}
	for _, fn := range optFns {
		fn(&opts)
	}
	t := opts.Tables
	if t.BasePrices == nil {
		t.BasePrices = map[string]float64{}
	}
	if _, ok := t.BasePrices[DefaultCategory]; !ok {
		t.BasePrices[DefaultCategory] = DefaultTables().BasePrices[DefaultCategory]
	}
	if t.DefaultLocation <= 0 {
		t.DefaultLocation = 1
	}
	if t.SeasonMultipliers == nil {
		t.SeasonMultipliers = DefaultTables().SeasonMultipliers
	}
	return &Model{tables: t}
}

// Estimate computes the market reference price for a category and location
// at the given date.
func (m *Model) Estimate(category, location string, at time.Time) core.MarketPriceEstimate {
	base := m.BasePrice(category)
	locMult := m.LocationMultiplier(location)
	season := m.SeasonFor(at)
	seasonMult := m.seasonMultiplier(season)

	return core.MarketPriceEstimate{
		Category:           category,
		Location:           location,
		Season:             season,
		BasePrice:          base,
		LocationMultiplier: locMult,
		SeasonMultiplier:   seasonMult,
		EstimatedPrice:     RoundCurrency(base * locMult * seasonMult),
		TableVersion:       m.tables.Version,
	}
}

// BasePrice returns the category's base price, falling back to the default entry.
func (m *Model) BasePrice(category string) float64 {
	if p, ok := m.tables.BasePrices[strings.ToLower(strings.TrimSpace(category))]; ok {
		return p
	}
	return m.tables.BasePrices[DefaultCategory]
}

// LocationMultiplier matches location case-insensitively against the ordered
// location keys.
func (m *Model) LocationMultiplier(location string) float64 {
	loc := strings.ToLower(location)
	if loc == "" {
		return m.tables.DefaultLocation
	}
	for _, l := range m.tables.Locations {
		if strings.Contains(loc, l.Key) {
			return l.Multiplier
		}
	}
	return m.tables.DefaultLocation
}

// SeasonFor maps a date to its season using the month calendar.
func (m *Model) SeasonFor(at time.Time) core.Season {
	s := m.tables.SeasonByMonth[int(at.Month())]
	if s == "" {
		return core.SeasonNormal
	}
	return s
}

func (m *Model) seasonMultiplier(s core.Season) float64 {
	if v, ok := m.tables.SeasonMultipliers[s]; ok {
		return v
	}
	return 1
}

// PerPerson splits an estimate across guests.
func PerPerson(est core.MarketPriceEstimate, guestCount int) (float64, error) {
	if guestCount <= 0 {
		return 0, fmt.Errorf("%w: guest count must be positive, got %d", core.ErrInvalidArgument, guestCount)
	}
	return RoundCurrency(est.EstimatedPrice / float64(guestCount)), nil
}

// RoundCurrency rounds an amount to the nearest currency unit, half away from
// zero. NaN and infinities are returned unchanged.
func RoundCurrency(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(0).InexactFloat64()
}
