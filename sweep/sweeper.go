package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/logging"
	"golang.org/x/sync/errgroup"
)

// Expirer applies a timeout transition to a single negotiation.
type Expirer interface {
	ExpireIfTimedOut(ctx context.Context, negotiationID string, now time.Time) (*core.Negotiation, bool, error)
}

// Options configures a Sweeper.
type Options struct {
	// Concurrency bounds the number of negotiations checked at once.
	Concurrency int

	// BatchSize limits how many overdue ids one run inspects, oldest deadline
	// first. Zero means all.
	BatchSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Sweeper expires overdue negotiations in bounded parallel batches.
type Sweeper struct {
	lister  core.DueLister
	expirer Expirer
	opts    Options
}

// Report summarises one sweep.
type Report struct {
	Scanned int      `json:"scanned"`
	Expired []string `json:"expired"`
}

// New creates a Sweeper listing candidates from lister and expiring them
// through expirer (usually the engine).
func New(lister core.DueLister, expirer Expirer, optFns ...func(o *Options)) *Sweeper {
	opts := Options{
		Concurrency: 8,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Sweeper{lister: lister, expirer: expirer, opts: opts}
}

// RunOnce expires the negotiations whose deadline lies before now. Negotiations that
// vanished or were concurrently updated are skipped; any other failure stops
// the run and is returned together with what was expired so far.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (*Report, error) {
	ids, err := s.lister.ListDue(ctx, now, s.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due negotiations: %w", err)
	}

	var (
		mu      sync.Mutex
		expired []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, ok, err := s.expirer.ExpireIfTimedOut(gctx, id, now)
			switch {
			case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrConflict):
				s.opts.Logger.Debug("Sweep skipped negotiation", "negotiation_id", id, "error", err)
				return nil
			case err != nil:
				return fmt.Errorf("expire %s: %w", id, err)
			}
			if ok {
				mu.Lock()
				expired = append(expired, id)
				mu.Unlock()
			}
			return nil
		})
	}

	err = g.Wait()
	sort.Strings(expired)

	report := &Report{Scanned: len(ids), Expired: expired}
	s.opts.Logger.Info("Sweep finished", "scanned", report.Scanned, "expired", len(expired))
	return report, err
}
