package store

// schemaVersionV1 is the initial labeling-run schema.
const schemaVersionV1 = 1

// schemaV1 holds one row per labeling run plus the labeled unit records it
// produced. Feature vectors travel as JSON so the schema does not have to
// chase the feature list.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	pool_path   TEXT NOT NULL,
	trials      INTEGER NOT NULL,
	seed        INTEGER NOT NULL,
	step_budget INTEGER NOT NULL,
	records     INTEGER NOT NULL,
	safe        INTEGER NOT NULL,
	risky       INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	source_file TEXT NOT NULL,
	name        TEXT NOT NULL,
	class       TEXT NOT NULL DEFAULT '',
	features    TEXT NOT NULL,
	label       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`
