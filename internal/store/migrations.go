package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Trainings table - one row per completed training run
		`CREATE TABLE IF NOT EXISTS trainings (
			id TEXT PRIMARY KEY,
			accuracy REAL NOT NULL,
			samples INTEGER NOT NULL,
			features INTEGER NOT NULL,
			classes TEXT NOT NULL DEFAULT '[]',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Index for listing runs newest first
		`CREATE INDEX IF NOT EXISTS idx_trainings_created_at ON trainings(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
