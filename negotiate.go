// Package negotiate provides a high-level façade over the negotiation engine,
// the market pricing model and the storage collaborator. Most applications
// interact with this package by:
//  1. Creating a Service via New() (optionally overriding the in-memory store)
//  2. Starting a negotiation from the counterparty's opening offer
//  3. Feeding requester offers through Counter until the negotiation concludes
//     or expires, or closing it explicitly with Accept
//
// All results are plain, serializable records so any HTTP, CLI or message
// layer can expose them directly. The façade delegates the state machine to
// engine.Engine; defaults are safe for local development and testing, while
// production deployments typically supply a durable store and a structured
// logger.
package negotiate

import (
	"context"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/engine"
	"github.com/hupe1980/negotiate/logging"
	"github.com/hupe1980/negotiate/policy"
	"github.com/hupe1980/negotiate/pricing"
	"github.com/hupe1980/negotiate/store"
	"golang.org/x/sync/singleflight"
)

// Options configures the Service instance.
type Options struct {
	// Strategy is the default strategy snapshotted onto new negotiations.
	Strategy core.Strategy

	// Store persists negotiations (defaults to an in-memory store).
	Store core.NegotiationStore

	// Pricing computes market reference prices (defaults to the table model).
	Pricing core.PricingModel

	// Calculator and Evaluator override the counter-offer policy.
	Calculator engine.CounterCalculator
	Evaluator  engine.AcceptanceEvaluator

	// Clock returns the current time (defaults to time.Now).
	Clock func() time.Time

	// Callbacks receives engine lifecycle hooks.
	Callbacks *engine.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Service is the negotiation façade.
type Service struct {
	opts     Options
	engine   *engine.Engine
	analyses singleflight.Group
}

// New creates a new Service with optional overrides. Any unset collaborator
// is initialized with its default implementation.
func New(optFns ...func(o *Options)) *Service {
	opts := Options{
		Strategy:   core.DefaultStrategy(),
		Store:      store.NewInMemoryStore(),
		Pricing:    pricing.NewModel(),
		Calculator: policy.NewCalculator(),
		Evaluator:  policy.NewEvaluator(),
		Clock:      time.Now,
		Callbacks:  engine.NewCallbackManager(),
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = engine.Config{Strategy: opts.Strategy}
		o.Store = opts.Store
		o.Pricing = opts.Pricing
		o.Calculator = opts.Calculator
		o.Evaluator = opts.Evaluator
		o.Clock = opts.Clock
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &Service{opts: opts, engine: e}
}

// Engine exposes the underlying engine, e.g. for a sweeper.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Meta carries the descriptive fields of a new negotiation.
type Meta struct {
	Category   string
	Location   string
	Message    string
	GuestCount int
	// Strategy overrides the service default for this negotiation only.
	Strategy *core.Strategy
}

// Start opens a negotiation with the counterparty's initial offer and returns
// its id.
func (s *Service) Start(ctx context.Context, subjectID, counterpartyID string, initialOffer float64, meta Meta) (string, error) {
	n, err := s.engine.Start(ctx, engine.StartRequest{
		SubjectID:      subjectID,
		CounterpartyID: counterpartyID,
		InitialOffer:   initialOffer,
		Message:        meta.Message,
		Category:       meta.Category,
		Location:       meta.Location,
		GuestCount:     meta.GuestCount,
		Strategy:       meta.Strategy,
	})
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// StrategyLabel classifies how far apart the parties remain after a round.
type StrategyLabel string

const (
	StrategyAggressive   StrategyLabel = "aggressive"
	StrategyBalanced     StrategyLabel = "balanced"
	StrategyConservative StrategyLabel = "conservative"
)

// CounterResult is the serializable outcome of one Counter call.
type CounterResult struct {
	NegotiationID  string        `json:"negotiationId"`
	Status         core.Status   `json:"status"`
	Result         core.Result   `json:"result,omitempty"`
	LastOffer      core.Offer    `json:"lastOffer"`
	Progress       float64       `json:"progress"`
	IsFinal        bool          `json:"isFinal"`
	Accepted       bool          `json:"accepted"`
	FinalAmount    *float64      `json:"finalAmount,omitempty"`
	ConcessionRate float64       `json:"concessionRate"`
	Strategy       StrategyLabel `json:"strategy"`
	Round          int           `json:"round"`
	Version        int64         `json:"version"`
}

// CounterOptions configures a single Counter call.
type CounterOptions struct {
	// ExpectedVersion, when positive, fails the call with ErrConflict unless
	// the negotiation is still at that version.
	ExpectedVersion int64
}

// IfVersion makes Counter conditional on the negotiation's version.
func IfVersion(v int64) func(o *CounterOptions) {
	return func(o *CounterOptions) { o.ExpectedVersion = v }
}

// Counter applies a requester offer and returns the system's response.
func (s *Service) Counter(ctx context.Context, negotiationID string, offer float64, message string, optFns ...func(o *CounterOptions)) (*CounterResult, error) {
	var opts CounterOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	out, err := s.engine.Counter(ctx, engine.CounterRequest{
		NegotiationID:   negotiationID,
		Offer:           offer,
		Message:         message,
		ExpectedVersion: opts.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}

	n := out.Negotiation
	res := &CounterResult{
		NegotiationID:  n.ID,
		Status:         n.Status,
		Result:         n.Result,
		LastOffer:      out.LastOffer(),
		Progress:       Progress(n.Ledger),
		IsFinal:        out.IsFinal(),
		Accepted:       out.Decision.Accept,
		FinalAmount:    n.FinalAmount,
		ConcessionRate: out.Calculation.ConcessionRate,
		Strategy:       labelFor(n, offer),
		Round:          n.CurrentRound,
		Version:        n.Version,
	}
	return res, nil
}

// labelFor classifies the remaining distance between the requester's offer
// and the counterparty side's latest position.
func labelFor(n *core.Negotiation, requesterOffer float64) StrategyLabel {
	last, ok := n.LastCounterpartyOffer()
	if !ok {
		return StrategyConservative
	}
	gap, ok := policy.RelativeGap(requesterOffer, last.Amount)
	switch {
	case !ok:
		return StrategyConservative
	case gap < 0.1:
		return StrategyAggressive
	case gap < 0.3:
		return StrategyBalanced
	default:
		return StrategyConservative
	}
}

// AcceptResult is the outcome of a manual acceptance.
type AcceptResult struct {
	NegotiationID string      `json:"negotiationId"`
	Status        core.Status `json:"status"`
	FinalAmount   float64     `json:"finalAmount"`
}

// Accept concludes the negotiation at its last offer on behalf of actorID.
func (s *Service) Accept(ctx context.Context, negotiationID, actorID string) (*AcceptResult, error) {
	n, err := s.engine.AcceptManually(ctx, negotiationID, actorID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{
		NegotiationID: n.ID,
		Status:        n.Status,
		FinalAmount:   *n.FinalAmount,
	}, nil
}

// Snapshot is a read-only view of a negotiation.
type Snapshot struct {
	Negotiation *core.Negotiation `json:"negotiation"`
	Progress    float64           `json:"progress"`
}

// Status returns the current snapshot. A negotiation past its deadline is
// expired before it is returned.
func (s *Service) Status(ctx context.Context, negotiationID string) (*Snapshot, error) {
	n, err := s.engine.Get(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Negotiation: n, Progress: Progress(n.Ledger)}, nil
}
