package store

import (
	"context"
	"database/sql"
	"errors"
)

type StoreStats struct {
	Documents      map[string]int
	OrdersByStatus map[string]int
	UnreadMessages int
}

// Stats summarizes what the database holds, for operators running the CLI.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{
		Documents:      make(map[string]int),
		OrdersByStatus: make(map[string]int),
	}

	// 1. Documents per collection
	rows, err := s.DB.QueryContext(ctx, `SELECT collection, COUNT(*) FROM documents GROUP BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.Documents[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Orders by status
	statusRows, err := s.DB.QueryContext(ctx, `
		SELECT COALESCE(json_extract(data, '$.status'), ''), COUNT(*)
		FROM documents
		WHERE collection = 'orders'
		GROUP BY 1
	`)
	if err != nil {
		return nil, err
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	// 3. Unread contact messages
	err = s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents
		WHERE collection = 'contact_messages' AND COALESCE(json_extract(data, '$.read'), 0) = 0
	`).Scan(&stats.UnreadMessages)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return stats, nil
}
