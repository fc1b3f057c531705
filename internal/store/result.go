package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit caps List and Best when no positive limit is given.
const DefaultListLimit = 50

// Result is the outcome of one finished game.
type Result struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	Speed        string    `json:"speed"`
	TotalTargets int       `json:"totalTargets"`
	Hits         int       `json:"hits"`
	Score        float64   `json:"score"`
	Rank         string    `json:"rank"`
	CompletedAt  time.Time `json:"completedAt"`
}

// ResultRepository provides access to stored results.
type ResultRepository struct {
	db *sql.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

// Create inserts a result. A missing ID or completion time is filled in.
func (r *ResultRepository) Create(res *Result) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO results (id, session_id, speed, total_targets, hits, score, rank, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.SessionID, res.Speed, res.TotalTargets, res.Hits, res.Score, res.Rank, res.CompletedAt,
	)
	return err
}

// GetByID retrieves a result by its ID.
func (r *ResultRepository) GetByID(id string) (*Result, error) {
	res := &Result{}
	err := r.db.QueryRow(
		`SELECT id, session_id, speed, total_targets, hits, score, rank, completed_at
		 FROM results WHERE id = ?`,
		id,
	).Scan(&res.ID, &res.SessionID, &res.Speed, &res.TotalTargets, &res.Hits, &res.Score, &res.Rank, &res.CompletedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// List returns up to limit results, newest first.
func (r *ResultRepository) List(limit int) ([]*Result, error) {
	return r.query(
		`SELECT id, session_id, speed, total_targets, hits, score, rank, completed_at
		 FROM results ORDER BY completed_at DESC LIMIT ?`,
		normalizeLimit(limit),
	)
}

// Best returns up to limit results by descending score. Equal scores keep
// the earlier game first.
func (r *ResultRepository) Best(limit int) ([]*Result, error) {
	return r.query(
		`SELECT id, session_id, speed, total_targets, hits, score, rank, completed_at
		 FROM results ORDER BY score DESC, completed_at ASC LIMIT ?`,
		normalizeLimit(limit),
	)
}

// Delete removes a result and its shares.
func (r *ResultRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ResultRepository) query(q string, args ...any) ([]*Result, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res := &Result{}
		if err := rows.Scan(&res.ID, &res.SessionID, &res.Speed, &res.TotalTargets, &res.Hits, &res.Score, &res.Rank, &res.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
