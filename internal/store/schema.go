package store

// schemaSQLite is the full schema for the SQLite backend.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	output TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	due_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	deleted_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_hub ON tasks(hub);

CREATE TABLE IF NOT EXISTS task_assignments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL REFERENCES tasks(task_id),
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	reasoning TEXT DEFAULT '',
	output TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	done_at DATETIME,
	UNIQUE(task_id, agent_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_status ON task_assignments(status);

CREATE TABLE IF NOT EXISTS agents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	persona TEXT DEFAULT '',
	skills TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	progress INTEGER NOT NULL DEFAULT 0,
	target_date DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS habits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	habit_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	schedule TEXT NOT NULL DEFAULT '0 9 * * *',
	streak INTEGER NOT NULL DEFAULT 0,
	last_done DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS habit_completions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	habit_id TEXT NOT NULL REFERENCES habits(habit_id),
	completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_habit_completions ON habit_completions(habit_id);

CREATE TABLE IF NOT EXISTS widgets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	widget_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'custom',
	config TEXT NOT NULL DEFAULT '{}',
	source TEXT DEFAULT '',
	active_version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS widget_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	widget_id TEXT NOT NULL REFERENCES widgets(widget_id),
	version INTEGER NOT NULL,
	config TEXT NOT NULL DEFAULT '{}',
	source TEXT DEFAULT '',
	origin TEXT NOT NULL DEFAULT 'manual',
	notes TEXT DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(widget_id, version)
);
CREATE INDEX IF NOT EXISTS idx_widget_versions ON widget_versions(widget_id);

CREATE TABLE IF NOT EXISTS evolutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	evolution_id TEXT UNIQUE NOT NULL,
	widget_id TEXT NOT NULL REFERENCES widgets(widget_id),
	parent_id TEXT,
	generation INTEGER NOT NULL DEFAULT 1,
	directive TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	summary TEXT DEFAULT '',
	model TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'proposed',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	decided_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_evolutions_widget ON evolutions(widget_id);

CREATE TABLE IF NOT EXISTS webhooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	webhook_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	url TEXT NOT NULL,
	secret TEXT DEFAULT '',
	events TEXT NOT NULL DEFAULT '*',
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	webhook_id TEXT NOT NULL REFERENCES webhooks(webhook_id),
	event TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0,
	next_at DATETIME,
	last_error TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON webhook_deliveries(status, next_at);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	notif_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	kind TEXT NOT NULL DEFAULT 'info',
	title TEXT NOT NULL,
	body TEXT DEFAULT '',
	read BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);

CREATE TABLE IF NOT EXISTS memory_chunks (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding BLOB,
	source TEXT NOT NULL DEFAULT 'note',
	ref_id TEXT DEFAULT '',
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memory_chunks_source ON memory_chunks(source);

CREATE TABLE IF NOT EXISTS scheduled_jobs (
	job_name TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'idle',
	last_run_at DATETIME,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// schemaPostgres mirrors schemaSQLite with Postgres column types.
const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	task_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	output TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	due_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at TIMESTAMPTZ,
	deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_hub ON tasks(hub);

CREATE TABLE IF NOT EXISTS task_assignments (
	id BIGSERIAL PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(task_id),
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	reasoning TEXT DEFAULT '',
	output TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	done_at TIMESTAMPTZ,
	UNIQUE(task_id, agent_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_status ON task_assignments(status);

CREATE TABLE IF NOT EXISTS agents (
	id BIGSERIAL PRIMARY KEY,
	agent_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	persona TEXT DEFAULT '',
	skills TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS goals (
	id BIGSERIAL PRIMARY KEY,
	goal_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	progress INTEGER NOT NULL DEFAULT 0,
	target_date TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS habits (
	id BIGSERIAL PRIMARY KEY,
	habit_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	schedule TEXT NOT NULL DEFAULT '0 9 * * *',
	streak INTEGER NOT NULL DEFAULT 0,
	last_done TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS habit_completions (
	id BIGSERIAL PRIMARY KEY,
	habit_id TEXT NOT NULL REFERENCES habits(habit_id),
	completed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_habit_completions ON habit_completions(habit_id);

CREATE TABLE IF NOT EXISTS widgets (
	id BIGSERIAL PRIMARY KEY,
	widget_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'custom',
	config TEXT NOT NULL DEFAULT '{}',
	source TEXT DEFAULT '',
	active_version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS widget_versions (
	id BIGSERIAL PRIMARY KEY,
	widget_id TEXT NOT NULL REFERENCES widgets(widget_id),
	version INTEGER NOT NULL,
	config TEXT NOT NULL DEFAULT '{}',
	source TEXT DEFAULT '',
	origin TEXT NOT NULL DEFAULT 'manual',
	notes TEXT DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(widget_id, version)
);
CREATE INDEX IF NOT EXISTS idx_widget_versions ON widget_versions(widget_id);

CREATE TABLE IF NOT EXISTS evolutions (
	id BIGSERIAL PRIMARY KEY,
	evolution_id TEXT UNIQUE NOT NULL,
	widget_id TEXT NOT NULL REFERENCES widgets(widget_id),
	parent_id TEXT,
	generation INTEGER NOT NULL DEFAULT 1,
	directive TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	summary TEXT DEFAULT '',
	model TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'proposed',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	decided_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_evolutions_widget ON evolutions(widget_id);

CREATE TABLE IF NOT EXISTS webhooks (
	id BIGSERIAL PRIMARY KEY,
	webhook_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	url TEXT NOT NULL,
	secret TEXT DEFAULT '',
	events TEXT NOT NULL DEFAULT '*',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
	id BIGSERIAL PRIMARY KEY,
	webhook_id TEXT NOT NULL REFERENCES webhooks(webhook_id),
	event TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0,
	next_at TIMESTAMPTZ,
	last_error TEXT DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON webhook_deliveries(status, next_at);

CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	notif_id TEXT UNIQUE NOT NULL,
	hub TEXT NOT NULL DEFAULT 'personal',
	kind TEXT NOT NULL DEFAULT 'info',
	title TEXT NOT NULL,
	body TEXT DEFAULT '',
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);

CREATE TABLE IF NOT EXISTS memory_chunks (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding BYTEA,
	source TEXT NOT NULL DEFAULT 'note',
	ref_id TEXT DEFAULT '',
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memory_chunks_source ON memory_chunks(source);

CREATE TABLE IF NOT EXISTS scheduled_jobs (
	job_name TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'idle',
	last_run_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
