// Package store houses concrete implementations of core.NegotiationStore.
// The interface itself lives in the core package so that the engine never
// depends on a concrete backend.
//
// InMemoryStore serves tests and single-process setups; the sqlstore
// sub-package provides durable SQL backends (SQLite, MySQL, PostgreSQL).
// Only the wiring layer decides which implementation to instantiate.
package store
