package database

// Schema mirrors the account and session accounting model: one users
// row per account, a per-role totals row, and one sessions row per
// live pairing.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	role         TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
	display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	user_id            TEXT PRIMARY KEY REFERENCES users(id),
	total_call_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS teachers (
	user_id                TEXT PRIMARY KEY REFERENCES users(id),
	total_teaching_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id       TEXT NOT NULL REFERENCES users(id),
	teacher_id       TEXT NOT NULL REFERENCES users(id),
	room_id          TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
	started_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ended_at         TIMESTAMP,
	duration_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`
