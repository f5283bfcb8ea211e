package store

// runMigrations executes all database migrations.
// Statements use the subset of SQL shared by SQLite and PostgreSQL.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Exercise thresholds table - stores per-exercise counter overrides
		`CREATE TABLE IF NOT EXISTS exercise_thresholds (
			exercise TEXT PRIMARY KEY,
			upper_limit DOUBLE PRECISION NOT NULL,
			lower_limit DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
