package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/internal/keylock"
	"github.com/hupe1980/negotiate/logging"
	"github.com/hupe1980/negotiate/policy"
	"github.com/hupe1980/negotiate/pricing"
	"github.com/hupe1980/negotiate/store"
	"github.com/oklog/ulid/v2"
)

// Config defines the engine's default negotiation behaviour.
//
// Strategy is copied onto every negotiation at start; a StartRequest may
// carry its own strategy instead.
type Config struct {
	Strategy core.Strategy
}

// DefaultConfig provides the baseline strategy thresholds.
var DefaultConfig = Config{
	Strategy: core.DefaultStrategy(),
}

// Options configures an Engine instance using the functional options pattern.
//
// Every collaborator has a default so New() is usable as-is in tests:
//
//	eng := New(func(o *Options) {
//	    o.Store = sqlStore
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains the default strategy.
	Config Config

	// Store persists negotiation records. Defaults to an in-memory store.
	Store core.NegotiationStore

	// Pricing computes market reference prices. Defaults to the table model.
	Pricing core.PricingModel

	// Calculator computes counter-offers. Defaults to the linear-curve calculator.
	Calculator CounterCalculator

	// Evaluator decides acceptance. Defaults to a seeded evaluator.
	Evaluator AcceptanceEvaluator

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// NewID generates negotiation ids. Defaults to random UUIDs.
	NewID func() string

	// Callbacks receives lifecycle hooks. Optional.
	Callbacks *CallbackManager

	// Logger provides structured logging. Defaults to a no-op logger.
	Logger logging.Logger
}

// Engine drives negotiations: it loads a record, holds its per-id exclusive
// section, applies one transition and writes it back with a version check.
//
// Concurrency Model:
//   - Operations on distinct negotiation ids never contend
//   - Operations on the same id are serialized in-process by a per-key lock
//   - Writers in other processes are fenced by the store's version check
//   - Start is serialized per subject/counterparty pair
//
// The engine owns no timers or goroutines; expiry is applied lazily on access
// or by an external sweeper calling ExpireIfTimedOut.
type Engine struct {
	store     core.NegotiationStore
	step      Step
	config    Config
	clock     func() time.Time
	newID     func() string
	callbacks *CallbackManager
	logger    logging.Logger
	locks     *keylock.Map

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// New creates an Engine with in-memory defaults for every collaborator.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:     DefaultConfig,
		Store:      store.NewInMemoryStore(),
		Pricing:    pricing.NewModel(),
		Calculator: policy.NewCalculator(),
		Evaluator:  policy.NewEvaluator(),
		Clock:      time.Now,
		NewID:      uuid.NewString,
		Callbacks:  NewCallbackManager(),
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e := &Engine{
		store:     opts.Store,
		config:    opts.Config,
		clock:     opts.Clock,
		newID:     opts.NewID,
		callbacks: opts.Callbacks,
		logger:    opts.Logger,
		locks:     keylock.New(),
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	e.step = Step{
		Pricing:    opts.Pricing,
		Calculator: opts.Calculator,
		Evaluator:  opts.Evaluator,
		NewOfferID: e.newOfferID,
	}
	return e
}

// Store exposes the backing store.
func (e *Engine) Store() core.NegotiationStore { return e.store }

// Pricing exposes the pricing model.
func (e *Engine) Pricing() core.PricingModel { return e.step.Pricing }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock() }

// Strategy returns the default strategy new negotiations start with.
func (e *Engine) Strategy() core.Strategy { return e.config.Strategy }

func (e *Engine) newOfferID(at time.Time) string {
	e.entropyMu.Lock()
	defer e.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), e.entropy).String()
}

// StartRequest describes the counterparty's opening offer.
type StartRequest struct {
	SubjectID      string
	CounterpartyID string
	InitialOffer   float64
	Message        string
	Category       string
	Location       string
	GuestCount     int
	// Strategy overrides the engine default for this negotiation.
	Strategy *core.Strategy
}

// Start creates a negotiation in AWAITING_REQUESTER_RESPONSE holding the
// opening offer. It fails with ErrDuplicateNegotiation when the pair already
// has an active negotiation.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*core.Negotiation, error) {
	if strings.TrimSpace(req.SubjectID) == "" || strings.TrimSpace(req.CounterpartyID) == "" {
		return nil, fmt.Errorf("%w: subject and counterparty ids are required", core.ErrInvalidArgument)
	}
	if !validAmount(req.InitialOffer) {
		return nil, fmt.Errorf("%w: initial offer must be a positive finite amount, got %v", core.ErrInvalidArgument, req.InitialOffer)
	}
	if req.GuestCount < 0 {
		return nil, fmt.Errorf("%w: guest count must not be negative", core.ErrInvalidArgument)
	}
	strategy := e.config.Strategy
	if req.Strategy != nil {
		strategy = *req.Strategy
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock("pair:" + core.PairKey(req.SubjectID, req.CounterpartyID))
	defer unlock()

	exists, err := e.store.ExistsActiveFor(ctx, req.SubjectID, req.CounterpartyID)
	if err != nil {
		return nil, fmt.Errorf("check active negotiation: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s already negotiating with %s", core.ErrDuplicateNegotiation, req.SubjectID, req.CounterpartyID)
	}

	now := e.clock()
	n := &core.Negotiation{
		ID:             e.newID(),
		SubjectID:      req.SubjectID,
		CounterpartyID: req.CounterpartyID,
		Category:       req.Category,
		Location:       req.Location,
		GuestCount:     req.GuestCount,
		Status:         core.StatusAwaitingRequester,
		CurrentRound:   1,
		Strategy:       strategy,
		CreatedAt:      now,
		UpdatedAt:      now,
		TimeoutAt:      now.Add(strategy.Timeout()),
		Version:        1,
	}
	n.Append(core.Offer{
		ID:        e.newOfferID(now),
		Amount:    req.InitialOffer,
		Party:     core.PartyCounterparty,
		Round:     1,
		Timestamp: now,
		Message:   req.Message,
	})

	if err := e.store.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store negotiation: %w", err)
	}
	e.logger.Info("Negotiation started", "negotiation_id", n.ID, "subject_id", n.SubjectID,
		"counterparty_id", n.CounterpartyID, "initial_offer", req.InitialOffer)
	logging.LogOffer(e.logger, n.ID, string(core.PartyCounterparty), req.InitialOffer, 1, "")
	return n.Clone(), nil
}

// CounterRequest carries a requester offer.
type CounterRequest struct {
	NegotiationID string
	Offer         float64
	Message       string
	// ExpectedVersion, when positive, must match the stored version or the
	// call fails with ErrConflict. Callers pass the version they last read to
	// detect that a concurrent update already moved the negotiation on.
	ExpectedVersion int64
}

// Counter applies a requester offer: the offer is appended, the calculator
// and evaluator run, and the system's counter is appended unless the offer
// was accepted outright.
func (e *Engine) Counter(ctx context.Context, req CounterRequest) (*CounterOutcome, error) {
	if !validAmount(req.Offer) {
		return nil, fmt.Errorf("%w: offer must be a positive finite amount, got %v", core.ErrInvalidArgument, req.Offer)
	}

	unlock := e.locks.Lock(req.NegotiationID)
	defer unlock()

	n, err := e.load(ctx, req.NegotiationID)
	if err != nil {
		return nil, err
	}
	if err := e.expireLocked(ctx, n); err != nil {
		return nil, err
	}
	if req.ExpectedVersion > 0 && req.ExpectedVersion != n.Version {
		return nil, fmt.Errorf("%w: %s expected version %d, negotiation is at version %d",
			core.ErrConflict, n.ID, req.ExpectedVersion, n.Version)
	}
	if n.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrInvalidState, n.ID, n.Status)
	}

	now := e.clock()
	pending := &core.Offer{Amount: req.Offer, Party: core.PartyRequester, Round: n.CurrentRound, Timestamp: now, Message: req.Message}
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeCounter, &CallbackContext{
		Negotiation:  n.Clone(),
		Offer:        pending,
		CallbackType: CallbackBeforeCounter,
	}); err != nil {
		return nil, fmt.Errorf("before counter: %w", err)
	}

	from := n.Status
	outcome, err := e.step.ApplyCounter(n, req.Offer, req.Message, now)
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, n); err != nil {
		return nil, err
	}

	for _, o := range n.Ledger[len(n.Ledger)-outcome.Appended:] {
		logging.LogOffer(e.logger, n.ID, string(o.Party), o.Amount, o.Round, o.Metadata.Rule)
	}
	logging.LogTransition(e.logger, n.ID, string(from), string(n.Status), n.CurrentRound,
		"rule", string(outcome.Calculation.Rule), "reason", string(outcome.Decision.Reason))

	snapshot := n.Clone()
	e.fire(ctx, CallbackAfterCounter, snapshot)
	e.fireTerminal(ctx, snapshot)

	outcome.Negotiation = snapshot
	return outcome, nil
}

// AcceptManually concludes a non-terminal negotiation at its last offer.
func (e *Engine) AcceptManually(ctx context.Context, negotiationID, actorID string) (*core.Negotiation, error) {
	unlock := e.locks.Lock(negotiationID)
	defer unlock()

	n, err := e.load(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if err := e.expireLocked(ctx, n); err != nil {
		return nil, err
	}
	from := n.Status
	if err := ApplyManualAccept(n, actorID, e.clock()); err != nil {
		return nil, err
	}
	if err := e.save(ctx, n); err != nil {
		return nil, err
	}
	logging.LogTransition(e.logger, n.ID, string(from), string(n.Status), n.CurrentRound,
		"result", string(n.Result), "actor_id", actorID, "final_amount", *n.FinalAmount)

	snapshot := n.Clone()
	e.fireTerminal(ctx, snapshot)
	return snapshot, nil
}

// ExpireIfTimedOut moves a non-terminal negotiation past its deadline to
// EXPIRED. The bool reports whether this call performed the transition.
func (e *Engine) ExpireIfTimedOut(ctx context.Context, negotiationID string, now time.Time) (*core.Negotiation, bool, error) {
	unlock := e.locks.Lock(negotiationID)
	defer unlock()

	n, err := e.load(ctx, negotiationID)
	if err != nil {
		return nil, false, err
	}
	from := n.Status
	if !ApplyTimeout(n, now) {
		return n, false, nil
	}
	if err := e.save(ctx, n); err != nil {
		return nil, false, err
	}
	logging.LogTransition(e.logger, n.ID, string(from), string(n.Status), n.CurrentRound,
		"result", string(n.Result), "timeout_at", n.TimeoutAt)

	snapshot := n.Clone()
	e.fireTerminal(ctx, snapshot)
	return snapshot, true, nil
}

// Get returns the negotiation, applying a pending timeout first.
func (e *Engine) Get(ctx context.Context, negotiationID string) (*core.Negotiation, error) {
	n, _, err := e.ExpireIfTimedOut(ctx, negotiationID, e.clock())
	return n, err
}

// expireLocked applies a due timeout and reports the negotiation as no longer
// mutable. The caller must hold the negotiation's lock.
func (e *Engine) expireLocked(ctx context.Context, n *core.Negotiation) error {
	from := n.Status
	if !ApplyTimeout(n, e.clock()) {
		return nil
	}
	if err := e.save(ctx, n); err != nil {
		return err
	}
	logging.LogTransition(e.logger, n.ID, string(from), string(n.Status), n.CurrentRound,
		"result", string(n.Result), "timeout_at", n.TimeoutAt)
	e.fireTerminal(ctx, n.Clone())
	return fmt.Errorf("%w: %s expired at %s", core.ErrInvalidState, n.ID, n.TimeoutAt.Format(time.RFC3339))
}

// validAmount reports whether v is a positive finite amount.
func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func (e *Engine) load(ctx context.Context, id string) (*core.Negotiation, error) {
	n, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load negotiation %s: %w", id, err)
	}
	return n, nil
}

func (e *Engine) save(ctx context.Context, n *core.Negotiation) error {
	n.Version++
	if err := e.store.Put(ctx, n); err != nil {
		n.Version--
		if errors.Is(err, core.ErrConflict) {
			e.logger.Warn("Lost concurrent update", "negotiation_id", n.ID, "version", n.Version+1)
			return err
		}
		return fmt.Errorf("store negotiation %s: %w", n.ID, err)
	}
	return nil
}

func (e *Engine) fire(ctx context.Context, t CallbackType, n *core.Negotiation) {
	if err := e.callbacks.ExecuteCallbacks(ctx, t, &CallbackContext{Negotiation: n, CallbackType: t}); err != nil {
		e.logger.Warn("Callback failed", "negotiation_id", n.ID, "callback", string(t), "error", err)
	}
}

func (e *Engine) fireTerminal(ctx context.Context, n *core.Negotiation) {
	switch n.Status {
	case core.StatusConcluded:
		e.fire(ctx, CallbackOnConclude, n)
	case core.StatusExpired:
		e.fire(ctx, CallbackOnExpire, n)
	}
}
