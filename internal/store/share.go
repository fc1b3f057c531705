package store

import (
	"database/sql"
	"time"
)

// Share is a link a share plugin produced for a result.
type Share struct {
	ID        int64     `json:"id"`
	ResultID  string    `json:"resultId"`
	Plugin    string    `json:"plugin"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShareRepository provides access to stored share links.
type ShareRepository struct {
	db *sql.DB
}

// Shares returns the share repository for this store.
func (s *Store) Shares() *ShareRepository {
	return &ShareRepository{db: s.db}
}

// Add records a share link. The result must exist.
func (r *ShareRepository) Add(sh *Share) error {
	sh.CreatedAt = time.Now().UTC()

	result, err := r.db.Exec(
		`INSERT INTO shares (result_id, plugin, url, created_at) VALUES (?, ?, ?, ?)`,
		sh.ResultID, sh.Plugin, sh.URL, sh.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sh.ID = id
	return nil
}

// ListByResult returns the shares of a result in insertion order.
func (r *ShareRepository) ListByResult(resultID string) ([]*Share, error) {
	rows, err := r.db.Query(
		`SELECT id, result_id, plugin, url, created_at FROM shares WHERE result_id = ? ORDER BY id`,
		resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		sh := &Share{}
		if err := rows.Scan(&sh.ID, &sh.ResultID, &sh.Plugin, &sh.URL, &sh.CreatedAt); err != nil {
			return nil, err
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}
