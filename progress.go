package negotiate

import (
	"math"

	"github.com/hupe1980/negotiate/core"
)

// Progress estimates how far the parties have moved, as a percentage.
//
// Each party's movement from its first to its latest offer is taken relative
// to that first offer. The mean of the two is scaled by 50 and capped to
// [0,100]. System counters count for the counterparty side, and a ledger
// where one side has not offered yet scores 0.
func Progress(ledger []core.Offer) float64 {
	var req, cp movement
	for _, o := range ledger {
		if o.Party == core.PartyRequester {
			req.add(o.Amount)
			continue
		}
		cp.add(o.Amount)
	}
	if !req.seen || !cp.seen {
		return 0
	}

	mean := (req.relative() + cp.relative()) / 2
	return math.Max(0, math.Min(100, mean*50))
}

type movement struct {
	first, last float64
	seen        bool
}

func (m *movement) add(amount float64) {
	if !m.seen {
		m.first, m.seen = amount, true
	}
	m.last = amount
}

func (m movement) relative() float64 {
	if m.first <= 0 {
		return 0
	}
	return math.Abs(m.last-m.first) / m.first
}
