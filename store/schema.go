package store

// Schema version for migration management
const SchemaVersion = 1

// SQL statements for database schema creation

// TasksTableSQL creates the tasks table. A task is unique per
// (user_id, external_id); re-syncing the same external id overwrites.
const TasksTableSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    user_id TEXT NOT NULL,
    external_id TEXT NOT NULL,
    title TEXT,
    description TEXT NOT NULL DEFAULT '',
    status TEXT,
    source TEXT NOT NULL,
    freelancer_id TEXT,
    freelancer_email TEXT,
    due_date INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (user_id, external_id)
);
`

// SyncJobsTableSQL creates the sync jobs table. Status is monotonic:
// in_progress -> completed | failed, enforced in the store layer.
const SyncJobsTableSQL = `
CREATE TABLE IF NOT EXISTS sync_jobs (
    id TEXT PRIMARY KEY,
    connection_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('in_progress', 'completed', 'failed')),
    started_at INTEGER NOT NULL,
    completed_at INTEGER,
    total_items INTEGER NOT NULL DEFAULT 0,
    error TEXT
);
`

// FreelancersTableSQL creates the freelancers table, keyed by email.
const FreelancersTableSQL = `
CREATE TABLE IF NOT EXISTS freelancers (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SchemaVersionTableSQL creates the schema version table for migration tracking
const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// TasksIndexesSQL creates indexes on tasks for the list and webhook paths
const TasksIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_freelancer ON tasks(freelancer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_external_id ON tasks(external_id);
`

// SyncJobsIndexesSQL creates indexes on sync_jobs for status lookups
const SyncJobsIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_sync_jobs_connection ON sync_jobs(connection_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs(status);
`

// AllTableSchemas returns all table creation statements in order
func AllTableSchemas() []string {
	return []string{
		SchemaVersionTableSQL,
		TasksTableSQL,
		SyncJobsTableSQL,
		FreelancersTableSQL,
	}
}

// AllIndexes returns all index creation statements
func AllIndexes() []string {
	return []string{
		TasksIndexesSQL,
		SyncJobsIndexesSQL,
	}
}

// PragmaStatements returns pragma statements to execute on database connection
func PragmaStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous = NORMAL", // Balance between safety and performance
	}
}
