package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per finished game
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			speed TEXT NOT NULL,
			total_targets INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			score REAL NOT NULL,
			rank TEXT NOT NULL CHECK(rank IN ('first', 'second', 'third', 'fourth')),
			completed_at DATETIME NOT NULL
		)`,

		// Links produced by share plugins for a result
		`CREATE TABLE IF NOT EXISTS shares (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			result_id TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
			plugin TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Persisted setting overrides, applied beneath command line overrides
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_results_score ON results(score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_result_id ON shares(result_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
