package database

// Stats represents registry statistics
type Stats struct {
	Links      int `json:"links"`
	Movies     int `json:"movies"`
	Episodes   int `json:"episodes"`
	Unverified int `json:"unverified"`
	Skipped    int `json:"skipped"`
	Runs       int `json:"runs"`
}

// GetStats returns registry statistics
func (r *Registry) GetStats() (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats Stats

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN kind = 'movie' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = 'episode' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN verified = 0 THEN 1 ELSE 0 END), 0)
		FROM links
	`).Scan(&stats.Links, &stats.Movies, &stats.Episodes, &stats.Unverified)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(`SELECT COUNT(*) FROM skipped_items`).Scan(&stats.Skipped)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&stats.Runs)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
