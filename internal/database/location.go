package database

import (
	"context"
	"time"
)

// InsertLocation caches a reverse-geocode result for one rounded
// coordinate pair. This is the single write that happens outside the
// update cycle's transaction: it is committed on its own, and the cycle
// never touches the location table, so the two writers cannot conflict.
func (d *Database) InsertLocation(ctx context.Context, lat, lon float64, description string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_location", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO location (latitude, longitude, description) VALUES (?, ?, ?)",
		lat, lon, description)
	return err
}
