package database

import (
	"database/sql"
	"errors"
	"time"
)

// LinkRecord is one link cinesync created in a target library
type LinkRecord struct {
	ID         int64
	SourcePath string
	LinkPath   string
	Kind       string
	Title      string
	Year       int
	ExternalID string
	Verified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpsertLink records the link for a source, replacing any earlier link
// recorded for the same source. A link path belongs to one source at a time,
// so rows of other sources at rec.LinkPath are dropped. CreatedAt survives
// the update.
func (r *Registry) UpsertLink(rec *LinkRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links WHERE link_path = ? AND source_path != ?`, rec.LinkPath, rec.SourcePath); err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = tx.Exec(`
		INSERT INTO links (source_path, link_path, kind, title, year, external_id, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_path) DO UPDATE SET
			link_path = excluded.link_path,
			kind = excluded.kind,
			title = excluded.title,
			year = excluded.year,
			external_id = excluded.external_id,
			verified = excluded.verified,
			updated_at = excluded.updated_at
	`, rec.SourcePath, rec.LinkPath, rec.Kind, rec.Title, rec.Year, rec.ExternalID, rec.Verified, now, now)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetLinkBySource returns the link recorded for a source, or nil when none is.
func (r *Registry) GetLinkBySource(sourcePath string) (*LinkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRow(`
		SELECT id, source_path, link_path, kind, title, year, external_id, verified, created_at, updated_at
		FROM links
		WHERE source_path = ?
	`, sourcePath)

	rec, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// DeleteLinkByPath removes the rows for a link path. Used when a link is
// removed from the target tree.
func (r *Registry) DeleteLinkByPath(linkPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`DELETE FROM links WHERE link_path = ?`, linkPath)
	return err
}

// ListLinks returns every recorded link ordered by link path
func (r *Registry) ListLinks() ([]LinkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT id, source_path, link_path, kind, title, year, external_id, verified, created_at, updated_at
		FROM links
		ORDER BY link_path ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []LinkRecord
	for rows.Next() {
		rec, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *rec)
	}
	return links, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*LinkRecord, error) {
	var rec LinkRecord
	var created, updated int64
	err := row.Scan(&rec.ID, &rec.SourcePath, &rec.LinkPath, &rec.Kind, &rec.Title,
		&rec.Year, &rec.ExternalID, &rec.Verified, &created, &updated)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	rec.UpdatedAt = time.Unix(updated, 0)
	return &rec, nil
}
