package negotiate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/pricing"
)

// Reasonable budgets lie within these fractions of the market estimate.
const (
	MinReasonableRatio = 0.6
	MaxReasonableRatio = 1.5
)

// PriceAnalysis compares a user budget against the market estimate.
type PriceAnalysis struct {
	Category       string      `json:"category"`
	Location       string      `json:"location"`
	Season         core.Season `json:"season"`
	EstimatedPrice float64     `json:"estimatedPrice"`
	MinReasonable  float64     `json:"minReasonable"`
	MaxReasonable  float64     `json:"maxReasonable"`
	UserBudget     float64     `json:"userBudget"`
	IsReasonable   bool        `json:"isReasonable"`
	Suggestion     string      `json:"suggestion"`
	PerPerson      *float64    `json:"perPerson,omitempty"`
	TableVersion   string      `json:"tableVersion,omitempty"`
}

// AnalysisOptions configures a PriceAnalysis call.
type AnalysisOptions struct {
	// GuestCount adds a per-person estimate when positive.
	GuestCount int
	// At is the reference date. Defaults to the service clock.
	At time.Time
}

// WithGuests requests a per-person breakdown.
func WithGuests(n int) func(o *AnalysisOptions) {
	return func(o *AnalysisOptions) { o.GuestCount = n }
}

// PriceAnalysis reports whether userBudget is reasonable for the category and
// location. Identical concurrent requests share one computation.
func (s *Service) PriceAnalysis(ctx context.Context, category, location string, userBudget float64, optFns ...func(o *AnalysisOptions)) (*PriceAnalysis, error) {
	opts := AnalysisOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.At.IsZero() {
		opts.At = s.opts.Clock()
	}
	if userBudget < 0 || math.IsNaN(userBudget) {
		return nil, fmt.Errorf("%w: budget must not be negative", core.ErrInvalidArgument)
	}
	if opts.GuestCount < 0 {
		return nil, fmt.Errorf("%w: guest count must not be negative", core.ErrInvalidArgument)
	}

	key := strings.Join([]string{
		strings.ToLower(category),
		strings.ToLower(location),
		strconv.FormatFloat(userBudget, 'f', -1, 64),
		strconv.Itoa(opts.GuestCount),
		opts.At.Format("2006-01"),
	}, "|")

	v, err, _ := s.analyses.Do(key, func() (any, error) {
		return s.analyze(category, location, userBudget, opts)
	})
	if err != nil {
		return nil, err
	}
	pa := v.(PriceAnalysis)
	if pa.PerPerson != nil {
		pp := *pa.PerPerson
		pa.PerPerson = &pp
	}
	return &pa, ctx.Err()
}

func (s *Service) analyze(category, location string, userBudget float64, opts AnalysisOptions) (PriceAnalysis, error) {
	est := s.opts.Pricing.Estimate(category, location, opts.At)
	minR := pricing.RoundCurrency(est.EstimatedPrice * MinReasonableRatio)
	maxR := pricing.RoundCurrency(est.EstimatedPrice * MaxReasonableRatio)

	pa := PriceAnalysis{
		Category:       category,
		Location:       location,
		Season:         est.Season,
		EstimatedPrice: est.EstimatedPrice,
		MinReasonable:  minR,
		MaxReasonable:  maxR,
		UserBudget:     userBudget,
		IsReasonable:   userBudget >= minR && userBudget <= maxR,
		TableVersion:   est.TableVersion,
	}

	switch {
	case userBudget < minR:
		pa.Suggestion = fmt.Sprintf("Consider raising your budget to at least %.0f; a typical %s in %s costs about %.0f.",
			minR, category, location, est.EstimatedPrice)
	case userBudget > maxR:
		pa.Suggestion = fmt.Sprintf("Your budget is above the usual range; there is room to negotiate towards %.0f.", est.EstimatedPrice)
	default:
		pa.Suggestion = "Your budget is within the usual market range."
	}

	if opts.GuestCount > 0 {
		pp, err := pricing.PerPerson(est, opts.GuestCount)
		if err != nil {
			return PriceAnalysis{}, err
		}
		pa.PerPerson = &pp
	}

	s.opts.Logger.Debug("Price analysis", "category", category, "location", location,
		"estimate", est.EstimatedPrice, "budget", userBudget, "reasonable", pa.IsReasonable)
	return pa, nil
}
