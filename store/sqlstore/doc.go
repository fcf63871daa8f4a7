// Package sqlstore implements core.NegotiationStore on database/sql.
//
// Three dialects are supported: SQLite (modernc.org/sqlite, pure Go, handy
// for single-node deployments and tests), MySQL (go-sql-driver/mysql) and
// PostgreSQL (pgx through its database/sql adapter).
//
// Each negotiation is one row. The full record, ledger and strategy
// included, is kept as a JSON document next to a few indexed columns:
//
//   - version drives optimistic concurrency: updates are conditional on the
//     previous version, a lost race surfaces as core.ErrConflict
//   - active_pair holds "subject|counterparty" while the negotiation is
//     active and NULL afterwards; its unique index makes a second active
//     negotiation for the pair fail with core.ErrDuplicateNegotiation even
//     across processes
//
// Migrations are tracked in a schema_version table and applied on Open.
package sqlstore
