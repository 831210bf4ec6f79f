package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"frame-cache/internal/database"
	"frame-cache/internal/extract"
	"frame-cache/internal/geocode"
	"frame-cache/internal/logging"
)

// pausePoll is how often a paused loop checks for commands, so resuming is
// prompt without busy-waiting.
const pausePoll = 100 * time.Millisecond

// ErrStopped is returned for operations sent to a cache whose loop has
// already shut down.
var ErrStopped = errors.New("cache loop stopped")

// State is the scheduler's lifecycle state.
type State int

const (
	// StateRunning means update cycles run on the configured cadence.
	StateRunning State = iota
	// StatePaused means no cycles run, but the loop stays responsive.
	StatePaused
	// StateStopped means the loop has exited and the store is closed.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdStop
	cmdUpdate
)

// Commands are delivered to the loop goroutine through a channel and
// observed only between cycles, never pre-empting a cycle in progress.
type command struct {
	kind  commandKind
	reply chan error
}

// Cache owns the persisted index and the background loop that keeps it in
// sync with the picture directory.
type Cache struct {
	db         *database.Database
	pictureDir string
	extractor  extract.Extractor
	resolver   geocode.Resolver
	interval   time.Duration
	pairs      bool

	cmds chan command
	done chan struct{}

	// Very first scan stops at the first out-of-date folder so a large
	// cold library starts serving quickly; later cycles walk everything.
	firstRun bool

	stateMu   sync.RWMutex
	state     State
	lastCycle time.Time
}

// Options configures a Cache.
type Options struct {
	PictureDir     string
	UpdateInterval time.Duration
	PortraitPairs  bool
}

// New creates a Cache over an already opened database. Call Start to begin
// background updates; the Cache takes ownership of the database and closes
// it when the loop stops.
func New(db *database.Database, extractor extract.Extractor, resolver geocode.Resolver, opts Options) *Cache {
	interval := opts.UpdateInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Cache{
		db:         db,
		pictureDir: opts.PictureDir,
		extractor:  extractor,
		resolver:   resolver,
		interval:   interval,
		pairs:      opts.PortraitPairs,
		cmds:       make(chan command),
		done:       make(chan struct{}),
		firstRun:   true,
		state:      StateRunning,
	}
}

// Start launches the update loop.
func (c *Cache) Start() {
	logging.Info("Starting cache update loop (interval: %v)", c.interval)
	go c.loop()
}

func (c *Cache) loop() {
	defer close(c.done)

	for {
		switch c.State() {
		case StateStopped:
			if err := c.db.Close(); err != nil {
				logging.Error("failed to close database on stop: %v", err)
			}
			logging.Info("Cache update loop stopped")
			return
		case StateRunning:
			if err := c.runCycle(); err != nil {
				logging.Error("update cycle failed: %v", err)
			}
			c.idle(c.interval)
		case StatePaused:
			c.idle(pausePoll)
		}
	}
}

// idle waits for the next cycle, handling at most one command if any
// arrives in the meantime.
func (c *Cache) idle(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case cmd := <-c.cmds:
		c.handle(cmd)
	case <-timer.C:
	}
}

func (c *Cache) handle(cmd command) {
	var err error
	switch cmd.kind {
	case cmdPause:
		c.setState(StatePaused)
	case cmdResume:
		c.setState(StateRunning)
	case cmdStop:
		c.setState(StateStopped)
	case cmdUpdate:
		err = c.runCycle()
	}
	cmd.reply <- err
}

// send delivers a command to the loop and waits for it to be applied.
func (c *Cache) send(kind commandKind) error {
	cmd := command{kind: kind, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// PauseLooping pauses (true) or resumes (false) the update loop. The
// transition takes effect after any in-flight cycle completes.
func (c *Cache) PauseLooping(pause bool) error {
	if pause {
		return c.send(cmdPause)
	}
	return c.send(cmdResume)
}

// UpdateCache runs one full update cycle on the loop goroutine and waits
// for it to finish.
func (c *Cache) UpdateCache() error {
	return c.send(cmdUpdate)
}

// Stop shuts the loop down after the in-flight cycle, if any, completes.
// The final cycle's commit has already happened by then; the store handle
// is released before Stop returns.
func (c *Cache) Stop() error {
	if err := c.send(cmdStop); err != nil {
		return err
	}
	<-c.done
	return nil
}

// State returns the scheduler's current state.
func (c *Cache) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Cache) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state != StateStopped {
		c.state = s
	}
}

// LastCycle returns when the last update cycle completed.
func (c *Cache) LastCycle() time.Time {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastCycle
}

func (c *Cache) noteCycle(t time.Time) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.lastCycle = t
}

// Query evaluates the caller's filter and sort against the index and
// returns ordered display slots (portrait pairing per configuration).
func (c *Cache) Query(filter, sort string) ([]database.Slot, error) {
	return c.db.QuerySlides(filter, sort, c.pairs)
}

// GetFileInfo returns the joined record for one file. When the record has
// coordinates but no cached location, the geocode capability is invoked;
// a non-empty answer is cached and the record re-read to pick up the join.
// Empty answers are not cached and will be retried on the next access.
func (c *Cache) GetFileInfo(ctx context.Context, fileID int64) (*database.FileInfo, error) {
	info, err := c.db.GetFileInfo(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if info.Latitude == nil || info.Longitude == nil || info.Location != nil || c.resolver == nil {
		return info, nil
	}

	description, err := c.resolver.Resolve(*info.Latitude, *info.Longitude)
	if err != nil {
		logging.Warn("reverse geocode failed for (%f, %f): %v", *info.Latitude, *info.Longitude, err)
		return info, nil
	}
	if description == "" {
		return info, nil
	}

	if err := c.db.InsertLocation(ctx, *info.Latitude, *info.Longitude, description); err != nil {
		logging.Warn("failed to cache geocode result: %v", err)
		return info, nil
	}

	return c.db.GetFileInfo(ctx, fileID)
}

// IsKnownFile reports whether the id exists in the index.
func (c *Cache) IsKnownFile(ctx context.Context, fileID int64) bool {
	_, err := c.db.GetFileInfo(ctx, fileID)
	return !errors.Is(err, sql.ErrNoRows) && err == nil
}
