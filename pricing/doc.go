// Package pricing implements the market pricing model: a deterministic
// reference price computed from a category base price, a location multiplier
// and a seasonal multiplier derived from the calendar month.
//
// Tables are explicitly typed and versioned, and every lookup has a default
// entry, so unknown categories or locations resolve to a defined price.
package pricing
