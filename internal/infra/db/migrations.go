package db

import _ "embed"

//go:embed migrations/postgres.sql
var postgresSchema string

//go:embed migrations/sqlite.sql
var sqliteSchema string

// sqliteSchemaVersion is stored in PRAGMA user_version once the schema is applied.
const sqliteSchemaVersion = 1
