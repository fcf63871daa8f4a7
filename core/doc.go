// Package core provides the foundational domain types and contracts of the
// negotiation engine:
//
//   - Negotiation, Offer and the append-only offer ledger
//   - Status / Result enums and their terminal-state rules
//   - Strategy thresholds with validation
//   - MarketPriceEstimate and the PricingModel contract
//   - NegotiationStore, the persistence contract required of storage backends
//   - Sentinel errors and their stable kinds
//
// The package keeps implementation concerns (pricing tables, concession
// policy, orchestration, persistence) out of scope so that backends and
// transports can depend on it without pulling in the engine.
package core
