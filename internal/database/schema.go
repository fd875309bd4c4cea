package database

const schema = `
CREATE TABLE run_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	total INTEGER NOT NULL,
	theater_count INTEGER NOT NULL,
	archive_count INTEGER NOT NULL,
	excluded_count INTEGER NOT NULL,
	from_cache BOOLEAN NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	ran_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_run_history_date ON run_history(date);
CREATE INDEX idx_run_history_ran_at ON run_history(ran_at);
`

// migrations contains incremental schema changes, applied in order based on
// the current user_version. migrations[0] is empty because version 0 uses
// the base schema.
var migrations = []string{
	"",
}
