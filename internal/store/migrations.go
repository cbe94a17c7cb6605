package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL UNIQUE COLLATE NOCASE,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id                INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title                  TEXT NOT NULL CHECK(length(title) BETWEEN 1 AND 500),
	completed_at           DATETIME,
	priority               TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('high', 'medium', 'low')),
	recurrence_pattern     TEXT
		CHECK(recurrence_pattern IN ('daily', 'weekly', 'monthly', 'yearly')),
	due_date               DATETIME,
	reminder_minutes       INTEGER
		CHECK(reminder_minutes IN (15, 30, 60, 120, 1440, 2880, 10080)),
	last_notification_sent DATETIME,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos(user_id);
CREATE INDEX IF NOT EXISTS idx_todos_user_due ON todos(user_id, due_date);
CREATE INDEX IF NOT EXISTS idx_todos_user_completed ON todos(user_id, completed_at);

CREATE TABLE IF NOT EXISTS subtasks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	todo_id   INTEGER NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	title     TEXT NOT NULL CHECK(length(title) BETWEEN 1 AND 200),
	completed INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	position  INTEGER NOT NULL DEFAULT 0 CHECK(position >= 0)
);

CREATE INDEX IF NOT EXISTS idx_subtasks_todo_id ON subtasks(todo_id);

CREATE TABLE IF NOT EXISTS tags (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL CHECK(length(name) BETWEEN 1 AND 50),
	color      TEXT NOT NULL DEFAULT '#3B82F6',
	created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS todo_tags (
	todo_id INTEGER NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	tag_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (todo_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_todo_tags_tag_id ON todo_tags(tag_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS templates (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id            INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name               TEXT NOT NULL,
	title              TEXT NOT NULL CHECK(length(title) BETWEEN 1 AND 500),
	priority           TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('high', 'medium', 'low')),
	recurrence_pattern TEXT
		CHECK(recurrence_pattern IN ('daily', 'weekly', 'monthly', 'yearly')),
	reminder_minutes   INTEGER
		CHECK(reminder_minutes IN (15, 30, 60, 120, 1440, 2880, 10080)),
	due_offset_days    INTEGER,
	category           TEXT NOT NULL DEFAULT '',
	subtasks           TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_templates_user_id ON templates(user_id);

CREATE TABLE IF NOT EXISTS template_tags (
	template_id INTEGER NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	tag_id      INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (template_id, tag_id)
);

CREATE TABLE IF NOT EXISTS holidays (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	date      TEXT NOT NULL,
	year      INTEGER NOT NULL,
	recurring INTEGER NOT NULL DEFAULT 0 CHECK(recurring IN (0, 1)),
	UNIQUE(date, name)
);

CREATE INDEX IF NOT EXISTS idx_holidays_year ON holidays(year);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	todo_id    INTEGER NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

CREATE INDEX IF NOT EXISTS idx_todos_reminder_pending
	ON todos(user_id, last_notification_sent, completed_at);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
