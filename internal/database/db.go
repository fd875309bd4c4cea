// Package database persists run history in a local sqlite file, keeping a
// record of every aggregate fetch beyond the cache's own TTL horizon.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

type DB struct {
	log      zerolog.Logger
	handler  *sql.DB
	squirrel sq.StatementBuilderType
}

// NewDB opens (creating if needed) the history database under rootPath and
// brings the schema up to date.
func NewDB(rootPath string, log zerolog.Logger) (*DB, error) {
	dbPath := filepath.Join(rootPath, "cinegrid.db")
	dsn := dbPath + "?_pragma=busy_timeout%3d1000&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	handler, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db := &DB{
		log:      log.With().Str("module", "database").Logger(),
		handler:  handler,
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}

	if err := db.migrate(context.Background()); err != nil {
		handler.Close()
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.handler.Close()
}

// migrate creates or upgrades the schema using PRAGMA user_version
// versioning.
func (db *DB) migrate(ctx context.Context) error {
	var version int
	if err := db.handler.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "failed to query schema version")
	}

	if version == len(migrations) {
		db.log.Debug().Int("version", version).Msg("database schema is up to date")
		return nil
	} else if version > len(migrations) {
		return errors.Errorf("database schema version (%d) is newer than supported (%d)", version, len(migrations))
	}

	tx, err := db.handler.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if version == 0 {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
		db.log.Info().Msg("created initial database schema")
	} else {
		for i := version; i < len(migrations); i++ {
			if migrations[i] == "" {
				continue
			}
			db.log.Info().Msgf("upgrading database schema to version: %v", i+1)
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return errors.Wrapf(err, "failed to execute migration #%v", i)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return errors.Wrap(err, "failed to bump schema version")
	}

	return tx.Commit()
}
