package cache

import (
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"frame-cache/internal/database"
	"frame-cache/internal/logging"
	"frame-cache/internal/metrics"
)

// supportedExtensions are the image types the slideshow can display,
// compared case-insensitively.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".heif": true,
	".heic": true,
}

// appleSidecarDir is the AppleDouble metadata directory created by macOS
// clients on network shares; its contents look like images but are not.
const appleSidecarDir = ".AppleDouble"

// runCycle executes one full update: scan folders, enumerate files,
// extract metadata, purge missing entries, commit. All writes land in a
// single transaction so readers see either the pre- or post-cycle state.
func (c *Cache) runCycle() error {
	start := time.Now()
	metrics.CycleIsRunning.Set(1)
	defer metrics.CycleIsRunning.Set(0)
	metrics.CycleRunsTotal.Inc()

	tx, err := c.db.BeginBatch()
	if err != nil {
		metrics.CycleErrors.Inc()
		return err
	}

	err = c.runCycleTx(tx)
	if endErr := c.db.EndBatch(tx, err); endErr != nil {
		metrics.CycleErrors.Inc()
		return endErr
	}

	duration := time.Since(start)
	metrics.CycleLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.CycleLastRunDuration.Set(duration.Seconds())
	c.noteCycle(time.Now())
	logging.Debug("update cycle finished in %v", duration)
	return nil
}

func (c *Cache) runCycleTx(tx *sql.Tx) error {
	modifiedFolders, err := c.updateModifiedFolders(tx)
	if err != nil {
		return err
	}

	modifiedFiles, err := c.updateModifiedFiles(tx, modifiedFolders)
	if err != nil {
		return err
	}

	if err := c.updateMetaData(tx, modifiedFiles); err != nil {
		return err
	}

	return c.purgeMissing(tx)
}

// updateModifiedFolders walks the whole picture tree and returns the
// folders whose mtime advanced since the last cycle (or which are new).
// Every visited folder's stored mtime is refreshed.
func (c *Cache) updateModifiedFolders(tx *sql.Tx) ([]string, error) {
	stored, err := c.db.FolderMtimes(tx)
	if err != nil {
		return nil, err
	}

	var outOfDate []string
	var stamps []database.FolderStamp

	walkErr := filepath.WalkDir(c.pictureDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directory vanished mid-walk or is unreadable; skip it, the
			// purge pass cleans up whatever it left behind.
			logging.Warn("error walking %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("cannot stat %s: %v", path, err)
			return nil
		}

		mtime := unixSeconds(info.ModTime())
		stamps = append(stamps, database.FolderStamp{Name: path, LastModified: mtime})

		prev, known := stored[path]
		if !known || prev < mtime {
			outOfDate = append(outOfDate, path)
			if c.firstRun {
				c.firstRun = false
				return fs.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return nil, walkErr
	}

	if err := c.db.UpsertFolders(tx, stamps); err != nil {
		return nil, err
	}
	metrics.FoldersUpdated.Add(float64(len(outOfDate)))
	return outOfDate, nil
}

// updateModifiedFiles enumerates the modified folders and returns the full
// paths of image files whose mtime advanced (or which are new), upserting
// their rows as one batch.
func (c *Cache) updateModifiedFiles(tx *sql.Tx, modifiedFolders []string) ([]string, error) {
	var outOfDate []string
	var stamps []database.FileStamp

	for _, dir := range modifiedFolders {
		if strings.Contains(dir, appleSidecarDir) {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			logging.Warn("cannot list %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			ext := filepath.Ext(name)
			if !supportedExtensions[strings.ToLower(ext)] {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				logging.Warn("cannot stat %s: %v", filepath.Join(dir, name), err)
				continue
			}

			fname := filepath.Join(dir, name)
			mtime := unixSeconds(info.ModTime())

			prev, known, err := c.db.FileMtime(tx, fname)
			if err != nil {
				return nil, err
			}
			if !known || prev < mtime {
				outOfDate = append(outOfDate, fname)
				stamps = append(stamps, database.FileStamp{
					Dir:          dir,
					Base:         strings.TrimSuffix(name, ext),
					Ext:          strings.TrimPrefix(ext, "."),
					LastModified: mtime,
				})
			}
		}
	}

	if err := c.db.UpsertFiles(tx, stamps); err != nil {
		return nil, err
	}
	metrics.FilesUpdated.Add(float64(len(stamps)))
	return outOfDate, nil
}

// updateMetaData extracts metadata for the modified files and upserts the
// results as one batch. A failed extraction is logged and skipped so one
// corrupt file cannot abort the rest of the batch.
func (c *Cache) updateMetaData(tx *sql.Tx, modifiedFiles []string) error {
	var updates []database.MetaUpdate
	for _, fname := range modifiedFiles {
		meta, err := c.extractor.Extract(fname)
		if err != nil {
			metrics.ExtractFailures.Inc()
			logging.Warn("metadata extraction failed for %s: %v", fname, err)
			continue
		}
		updates = append(updates, database.MetaUpdate{Fname: fname, Meta: *meta})
	}
	return c.db.UpsertMeta(tx, updates)
}

// purgeMissing deletes folder and file rows whose backing path no longer
// exists. Folder deletion cascades to files and meta; file deletion
// cascades to meta. Location rows are never purged: they are cheap and a
// coordinate may come back.
func (c *Cache) purgeMissing(tx *sql.Tx) error {
	folders, err := c.db.Folders(tx)
	if err != nil {
		return err
	}

	var missingFolders []int64
	for _, folder := range folders {
		if _, err := os.Stat(folder.Name); os.IsNotExist(err) {
			missingFolders = append(missingFolders, folder.ID)
		}
	}
	if err := c.db.DeleteFolders(tx, missingFolders); err != nil {
		return err
	}

	// Re-read after the folder cascade so files already removed above are
	// not checked again.
	refs, err := c.db.FileRefs(tx)
	if err != nil {
		return err
	}

	var missingFiles []int64
	for _, ref := range refs {
		if _, err := os.Stat(ref.Fname); os.IsNotExist(err) {
			missingFiles = append(missingFiles, ref.ID)
		}
	}
	return c.db.DeleteFiles(tx, missingFiles)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
