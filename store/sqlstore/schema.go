package sqlstore

import (
	"context"
	"fmt"
)

type migration struct {
	version    int
	statements []string
}

// migrations are applied in order; statements run one at a time because not
// every driver accepts multi-statement strings.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS negotiations (
				id              VARCHAR(64)  NOT NULL PRIMARY KEY,
				subject_id      VARCHAR(255) NOT NULL,
				counterparty_id VARCHAR(255) NOT NULL,
				status          VARCHAR(32)  NOT NULL,
				active_pair     VARCHAR(512) NULL UNIQUE,
				version         BIGINT       NOT NULL,
				timeout_at      BIGINT       NOT NULL,
				updated_at      BIGINT       NOT NULL,
				body            TEXT         NOT NULL
			)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE INDEX idx_negotiations_due ON negotiations (timeout_at)`,
		},
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration v%d: %w", m.version, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		s.logger.Info("Applied migration", "version", m.version, "dialect", string(s.dialect))
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}
