package database

import (
	"database/sql"
	"time"

	"frame-cache/internal/metrics"
)

// FolderMtimes returns the stored modification time for every known folder,
// keyed by absolute path. Used by the scanner to detect out-of-date folders.
func (d *Database) FolderMtimes(tx *sql.Tx) (map[string]float64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("folder_mtimes", start, err) }()

	rows, err := tx.Query("SELECT name, last_modified FROM folder")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mtimes := make(map[string]float64)
	for rows.Next() {
		var name string
		var mtime float64
		if err = rows.Scan(&name, &mtime); err != nil {
			return nil, err
		}
		mtimes[name] = mtime
	}
	err = rows.Err()
	return mtimes, err
}

// UpsertFolders refreshes the stored mtime of every visited folder. The
// INSERT OR IGNORE / UPDATE pair is deliberate: INSERT OR REPLACE would
// assign a new folder_id on conflict, breaking the file rows that
// reference it. The redundant UPDATE after a fresh insert is harmless.
func (d *Database) UpsertFolders(tx *sql.Tx, stamps []FolderStamp) error {
	if len(stamps) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_folders", start, err) }()

	insert, err := tx.Prepare("INSERT OR IGNORE INTO folder(last_modified, name) VALUES(?, ?)")
	if err != nil {
		return err
	}
	defer insert.Close()

	update, err := tx.Prepare("UPDATE folder SET last_modified = ? WHERE name = ?")
	if err != nil {
		return err
	}
	defer update.Close()

	for _, s := range stamps {
		if _, err = insert.Exec(s.LastModified, s.Name); err != nil {
			return err
		}
		if _, err = update.Exec(s.LastModified, s.Name); err != nil {
			return err
		}
	}
	return nil
}

// FileMtime returns the stored modification time for the file at fname,
// or ok=false when the file is not yet indexed.
func (d *Database) FileMtime(tx *sql.Tx, fname string) (mtime float64, ok bool, err error) {
	start := time.Now()
	defer func() { recordQuery("file_mtime", start, err) }()

	err = tx.QueryRow("SELECT last_modified FROM all_data WHERE fname = ?", fname).Scan(&mtime)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return mtime, true, nil
}

// UpsertFiles writes one batch of new or modified file rows. Unlike
// folders, INSERT OR REPLACE is safe here: a reassigned file_id only
// orphans the meta row, which the meta upsert recreates in the same cycle.
func (d *Database) UpsertFiles(tx *sql.Tx, stamps []FileStamp) error {
	if len(stamps) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_files", start, err) }()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO file(folder_id, basename, extension, last_modified)
		VALUES((SELECT folder_id FROM folder WHERE name = ?), ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stamps {
		if _, err = stmt.Exec(s.Dir, s.Base, s.Ext, s.LastModified); err != nil {
			return err
		}
	}
	return nil
}

// UpsertMeta writes one batch of extracted metadata rows, resolving each
// file id through the all_data view by full path.
func (d *Database) UpsertMeta(tx *sql.Tx, updates []MetaUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_meta", start, err) }()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO meta(
			file_id, orientation, taken_at, f_number, exposure_time, iso,
			focal_length, make, model, lens, rating, latitude, longitude,
			width, height)
		VALUES((SELECT file_id FROM all_data WHERE fname = ?),
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		m := u.Meta
		_, err = stmt.Exec(u.Fname,
			m.Orientation, m.TakenAt, m.FNumber, m.ExposureTime, m.ISO,
			m.FocalLength, m.Make, m.Model, m.Lens, m.Rating,
			m.Latitude, m.Longitude, m.Width, m.Height)
		if err != nil {
			return err
		}
	}
	return nil
}

// Folders lists every stored folder row. Used by the purge pass.
func (d *Database) Folders(tx *sql.Tx) ([]Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("folders", start, err) }()

	rows, err := tx.Query("SELECT folder_id, name, last_modified FROM folder")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err = rows.Scan(&f.ID, &f.Name, &f.LastModified); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	err = rows.Err()
	return folders, err
}

// FileRefs lists every indexed file's id and full path. Used by the purge
// pass.
func (d *Database) FileRefs(tx *sql.Tx) ([]FileRef, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("file_refs", start, err) }()

	rows, err := tx.Query("SELECT file_id, fname FROM all_data")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []FileRef
	for rows.Next() {
		var r FileRef
		if err = rows.Scan(&r.ID, &r.Fname); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	err = rows.Err()
	return refs, err
}

// DeleteFolders removes folder rows by id. The clean_file_trigger cascades
// the delete to the folder's files, and from there to their meta rows.
func (d *Database) DeleteFolders(tx *sql.Tx, ids []int64) error {
	return d.deleteByID(tx, "delete_folders", "DELETE FROM folder WHERE folder_id = ?", ids)
}

// DeleteFiles removes file rows by id. The clean_meta_trigger cascades the
// delete to each file's meta row.
func (d *Database) DeleteFiles(tx *sql.Tx, ids []int64) error {
	return d.deleteByID(tx, "delete_files", "DELETE FROM file WHERE file_id = ?", ids)
}

func (d *Database) deleteByID(tx *sql.Tx, operation, query string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.Exec(id); err != nil {
			return err
		}
	}
	metrics.FilesPurged.Add(float64(len(ids)))
	return nil
}
