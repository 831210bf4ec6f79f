package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DefaultSort orders query results by capture time, oldest first.
const DefaultSort = "taken_at ASC"

// sentinelID marks a portrait position in the full pass of a paired query.
const sentinelID = -1

// sortColumns is the allowlist of columns accepted in a sort clause. The
// filter clause, by contrast, is a trusted-input-only surface: it comes
// from the operator-facing control layer, never from end users.
var sortColumns = map[string]bool{
	"file_id":       true,
	"fname":         true,
	"last_modified": true,
	"orientation":   true,
	"taken_at":      true,
	"f_number":      true,
	"exposure_time": true,
	"iso":           true,
	"focal_length":  true,
	"make":          true,
	"model":         true,
	"lens":          true,
	"rating":        true,
	"latitude":      true,
	"longitude":     true,
	"width":         true,
	"height":        true,
	"is_portrait":   true,
	"location":      true,
}

// ValidateSort checks a sort clause ("col [asc|desc], ...") against the
// column allowlist.
func ValidateSort(sort string) error {
	for _, term := range strings.Split(sort, ",") {
		parts := strings.Fields(term)
		if len(parts) == 0 || len(parts) > 2 {
			return fmt.Errorf("invalid sort term %q", strings.TrimSpace(term))
		}
		if !sortColumns[strings.ToLower(parts[0])] {
			return fmt.Errorf("unknown sort column %q", parts[0])
		}
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc", "desc":
			default:
				return fmt.Errorf("invalid sort direction %q", parts[1])
			}
		}
	}
	return nil
}

// QuerySlides evaluates the caller's filter and sort against the all_data
// view and returns the matching file ids as ordered display slots.
//
// Without pairing every match is its own slot. With pairing the query runs
// twice over the same filter and order: the full pass keeps landscape ids
// and marks each portrait position with a sentinel; the portrait pass
// yields portrait ids only. Walking the full pass, each sentinel consumes
// up to two ids from the front of the portrait list, so consecutive
// portraits share a slide while the overall sort order is preserved.
func (d *Database) QuerySlides(filter, sort string, pairs bool) ([]Slot, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("query_slides", start, err) }()

	if filter == "" {
		filter = "1"
	}
	if sort == "" {
		sort = DefaultSort
	}
	if err = ValidateSort(sort); err != nil {
		return nil, err
	}

	if !pairs {
		query := fmt.Sprintf("SELECT file_id FROM all_data WHERE %s ORDER BY %s", filter, sort)
		var ids []int64
		ids, err = d.queryIDs(query)
		if err != nil {
			return nil, err
		}
		slots := make([]Slot, 0, len(ids))
		for _, id := range ids {
			slots = append(slots, Slot{id})
		}
		return slots, nil
	}

	fullQuery := fmt.Sprintf(`
		SELECT CASE WHEN is_portrait = 0 THEN file_id ELSE %d END
		FROM all_data WHERE %s ORDER BY %s`, sentinelID, filter, sort)
	fullList, err := d.queryIDs(fullQuery)
	if err != nil {
		return nil, err
	}

	portraitQuery := fmt.Sprintf(`
		SELECT file_id FROM all_data
		WHERE (%s) AND is_portrait = 1 ORDER BY %s`, filter, sort)
	portraitList, err := d.queryIDs(portraitQuery)
	if err != nil {
		return nil, err
	}

	return pairSlots(fullList, portraitList), nil
}

// pairSlots merges the full and portrait passes into display slots.
func pairSlots(fullList, portraitList []int64) []Slot {
	slots := make([]Slot, 0, len(fullList))
	for _, id := range fullList {
		if id != sentinelID {
			slots = append(slots, Slot{id})
			continue
		}
		if len(portraitList) == 0 {
			continue
		}
		slot := Slot{portraitList[0]}
		portraitList = portraitList[1:]
		if len(portraitList) > 0 {
			slot = append(slot, portraitList[0])
			portraitList = portraitList[1:]
		}
		slots = append(slots, slot)
	}
	return slots
}

func (d *Database) queryIDs(query string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetFileInfo returns the fully joined record for one file id, or
// sql.ErrNoRows when the id is unknown.
func (d *Database) GetFileInfo(ctx context.Context, fileID int64) (*FileInfo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_file_info", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT file_id, fname, last_modified, orientation, taken_at, f_number,
		exposure_time, iso, focal_length, make, model, lens, rating,
		latitude, longitude, width, height, is_portrait, location
	FROM all_data WHERE file_id = ?`

	var (
		info         FileInfo
		orientation  sql.NullInt64
		takenAt      sql.NullFloat64
		fNumber      sql.NullFloat64
		exposureTime sql.NullString
		iso          sql.NullFloat64
		focalLength  sql.NullString
		makeTag      sql.NullString
		model        sql.NullString
		lens         sql.NullString
		rating       sql.NullInt64
		latitude     sql.NullFloat64
		longitude    sql.NullFloat64
		width        sql.NullInt64
		height       sql.NullInt64
		isPortrait   sql.NullBool
		location     sql.NullString
	)

	err = d.db.QueryRowContext(ctx, query, fileID).Scan(
		&info.FileID, &info.Fname, &info.LastModified, &orientation,
		&takenAt, &fNumber, &exposureTime, &iso, &focalLength, &makeTag,
		&model, &lens, &rating, &latitude, &longitude, &width, &height,
		&isPortrait, &location,
	)
	if err != nil {
		return nil, err
	}

	info.Meta = NewMeta()
	if orientation.Valid {
		info.Orientation = int(orientation.Int64)
	}
	info.TakenAt = takenAt.Float64
	info.FNumber = fNumber.Float64
	info.ISO = iso.Float64
	info.Width = int(width.Int64)
	info.Height = int(height.Int64)
	info.IsPortrait = isPortrait.Valid && isPortrait.Bool
	info.ExposureTime = nullString(exposureTime)
	info.FocalLength = nullString(focalLength)
	info.Make = nullString(makeTag)
	info.Model = nullString(model)
	info.Lens = nullString(lens)
	info.Location = nullString(location)
	if rating.Valid {
		r := rating.Int64
		info.Rating = &r
	}
	if latitude.Valid && longitude.Valid {
		lat, lon := latitude.Float64, longitude.Float64
		info.Latitude = &lat
		info.Longitude = &lon
	}

	return &info, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
