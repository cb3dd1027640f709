package sqlite

// initSchema creates the database schema if it doesn't exist.
func (db *DB) initSchema() error {
	schema := `
	-- Emergency alert records
	CREATE TABLE IF NOT EXISTS emergency_alerts (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		resolved_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON emergency_alerts(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON emergency_alerts(status);

	-- Contact names snapshotted at alert creation, one row per notified contact
	CREATE TABLE IF NOT EXISTS alert_contacts_notified (
		alert_id TEXT NOT NULL REFERENCES emergency_alerts(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		contact_name TEXT NOT NULL,
		PRIMARY KEY (alert_id, position)
	);

	-- Single-row profile for the monitored person
	CREATE TABLE IF NOT EXISTS profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		medical_conditions TEXT NOT NULL DEFAULT '',
		medications TEXT NOT NULL DEFAULT '',
		allergies TEXT NOT NULL DEFAULT '',
		doctor_info TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	-- Live emergency contact list, ordered by position
	CREATE TABLE IF NOT EXISTS emergency_contacts (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		relationship TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_contacts_position ON emergency_contacts(position);
	`

	_, err := db.conn.Exec(schema)
	return err
}
