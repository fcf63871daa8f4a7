// Package policy holds the negotiation decision rules: the counter-offer
// calculator with its pluggable concession curve, and the acceptance
// evaluator with its round-limit tie-break.
//
// Both are pure with respect to their inputs (the coin-flip tie-break and
// RandomCurve draw from explicitly seeded sources) and are safe for
// concurrent use.
package policy
