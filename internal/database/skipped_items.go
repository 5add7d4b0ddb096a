package database

import (
	"database/sql"
	"time"
)

// SkipReason defines why a candidate was skipped
type SkipReason string

const (
	SkipReasonUnparsableName      SkipReason = "unparsable_name"
	SkipReasonResolverUnavailable SkipReason = "resolver_unavailable"
	SkipReasonLinkCreationFailed  SkipReason = "link_creation_failed"
	SkipReasonConflict            SkipReason = "conflict"
)

// SkippedItem is a candidate that could not be linked
type SkippedItem struct {
	ID        int64
	Path      string
	Kind      string
	Reason    SkipReason
	Detail    string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InsertSkippedItem adds a candidate to the skip queue, or bumps its
// attempt counter when it is already there.
func (r *Registry) InsertSkippedItem(path, kind string, reason SkipReason, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	_, err := r.db.Exec(`
		INSERT INTO skipped_items (path, kind, reason, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			reason = excluded.reason,
			detail = excluded.detail,
			attempts = attempts + 1,
			updated_at = excluded.updated_at
	`, path, kind, reason, detail, now, now)

	return err
}

// ClearSkippedItem drops a candidate from the skip queue once it succeeds
func (r *Registry) ClearSkippedItem(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`DELETE FROM skipped_items WHERE path = ?`, path)
	return err
}

// GetSkippedItem returns the queue entry for path, or nil.
func (r *Registry) GetSkippedItem(path string) (*SkippedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT id, path, kind, reason, detail, attempts, created_at, updated_at
		FROM skipped_items
		WHERE path = ?
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSkippedItems(rows)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// GetSkippedItems returns the whole skip queue, oldest first
func (r *Registry) GetSkippedItems() ([]SkippedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT id, path, kind, reason, detail, attempts, created_at, updated_at
		FROM skipped_items
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSkippedItems(rows)
}

// GetSkippedItemsByReason returns items filtered by skip reason
func (r *Registry) GetSkippedItemsByReason(reason SkipReason) ([]SkippedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT id, path, kind, reason, detail, attempts, created_at, updated_at
		FROM skipped_items
		WHERE reason = ?
		ORDER BY created_at ASC, id ASC
	`, reason)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSkippedItems(rows)
}

// CountSkippedByReason returns counts grouped by reason
func (r *Registry) CountSkippedByReason() (map[SkipReason]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT reason, COUNT(*)
		FROM skipped_items
		GROUP BY reason
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[SkipReason]int)
	for rows.Next() {
		var reason SkipReason
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		counts[reason] = count
	}

	return counts, rows.Err()
}

func scanSkippedItems(rows *sql.Rows) ([]SkippedItem, error) {
	var items []SkippedItem
	for rows.Next() {
		var item SkippedItem
		var created, updated int64
		err := rows.Scan(
			&item.ID,
			&item.Path,
			&item.Kind,
			&item.Reason,
			&item.Detail,
			&item.Attempts,
			&created,
			&updated,
		)
		if err != nil {
			return nil, err
		}
		item.CreatedAt = time.Unix(created, 0)
		item.UpdatedAt = time.Unix(updated, 0)
		items = append(items, item)
	}

	return items, rows.Err()
}
