// Package index persists the locations of tracked spawners in a SQLite database, so that their crack
// animation and holograms can be restored after a restart without scanning every chunk.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/dm-vev/silkspawner/server/spawner"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by Rows after the index was closed.
var ErrClosed = errors.New("index: closed")

// Row is a single indexed spawner.
type Row struct {
	// World is the name of the world the spawner is in.
	World string
	Pos   cube.Pos
	spawner.Record
	// Updated is the time the row was last written.
	Updated time.Time
}

// Stats holds counters of the write queue.
type Stats struct {
	Dropped       uint64
	QueueDepth    int
	QueueCapacity int
}

// Index is a SQLite backed index of spawners. Writes are queued and applied by a single writer goroutine, so
// Upsert and Delete never block the caller. Writes are dropped if the queue is full.
type Index struct {
	db  *sql.DB
	log *slog.Logger

	// mu guards sends on ch against it being closed.
	mu     sync.RWMutex
	ch     chan req
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
}

type reqKind int

const (
	reqUpsert reqKind = iota + 1
	reqDelete
	reqDeleteWorld
	reqFlush
)

type req struct {
	kind reqKind
	row  Row
	done chan struct{}
}

const (
	queueSize     = 4096
	commitEvery   = 256
	commitMaxWait = time.Second
)

// Open opens the index at path, creating the file and its parent directories if they do not exist.
func Open(path string, log *slog.Logger) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("open index: empty path")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index: pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index: schema: %w", err)
	}

	idx := &Index{db: db, log: log, ch: make(chan req, queueSize)}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS spawners (
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			type TEXT NOT NULL,
			health REAL NOT NULL,
			hologram INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (world, x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_spawners_type ON spawners(type);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Upsert queues a write of r, replacing any row at the same location.
func (idx *Index) Upsert(r Row) {
	if r.Updated.IsZero() {
		r.Updated = time.Now()
	}
	idx.enqueue(req{kind: reqUpsert, row: r})
}

// Delete queues the removal of the row at pos in the world with the name passed.
func (idx *Index) Delete(world string, pos cube.Pos) {
	idx.enqueue(req{kind: reqDelete, row: Row{World: world, Pos: pos}})
}

// DeleteWorld queues the removal of every row of the world with the name passed.
func (idx *Index) DeleteWorld(world string) {
	idx.enqueue(req{kind: reqDeleteWorld, row: Row{World: world}})
}

func (idx *Index) enqueue(r req) {
	if idx == nil {
		return
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return
	}
	select {
	case idx.ch <- r:
	default:
		idx.dropped.Add(1)
	}
}

// Flush blocks until all writes queued before the call are committed or ctx is done.
func (idx *Index) Flush(ctx context.Context) error {
	if idx == nil {
		return ErrClosed
	}
	done := make(chan struct{})
	if err := idx.send(ctx, req{kind: reqFlush, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send blocks until r is queued or ctx is done.
func (idx *Index) send(ctx context.Context, r req) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return ErrClosed
	}
	select {
	case idx.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rows flushes pending writes and returns every indexed spawner ordered by world and position.
func (idx *Index) Rows(ctx context.Context) ([]Row, error) {
	if err := idx.Flush(ctx); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	rows, err := idx.db.QueryContext(ctx, `SELECT world,x,y,z,type,health,hologram,updated_at FROM spawners ORDER BY world,x,y,z`)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r        Row
			health   float64
			hologram int
			updated  string
		)
		if err := rows.Scan(&r.World, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.Type, &health, &hologram, &updated); err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		r.Health = spawner.Health(health)
		r.Hologram = hologram != 0
		r.Updated, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return out, nil
}

// Stats returns the counters of the write queue.
func (idx *Index) Stats() Stats {
	if idx == nil {
		return Stats{}
	}
	return Stats{Dropped: idx.dropped.Load(), QueueDepth: len(idx.ch), QueueCapacity: cap(idx.ch)}
}

// Close stops the writer after it applied all queued writes and closes the database.
func (idx *Index) Close() error {
	if idx == nil {
		return nil
	}
	var err error
	idx.once.Do(func() {
		idx.mu.Lock()
		idx.closed = true
		close(idx.ch)
		idx.mu.Unlock()
		idx.wg.Wait()
		err = idx.db.Close()
	})
	return err
}

func (idx *Index) loop() {
	ctx := context.Background()

	upsert, err := idx.db.Prepare(`INSERT OR REPLACE INTO spawners(world,x,y,z,type,health,hologram,updated_at) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		idx.log.Error("Could not prepare index statement.", "err", err)
	}
	remove, err := idx.db.Prepare(`DELETE FROM spawners WHERE world=? AND x=? AND y=? AND z=?`)
	if err != nil {
		idx.log.Error("Could not prepare index statement.", "err", err)
	}
	removeWorld, err := idx.db.Prepare(`DELETE FROM spawners WHERE world=?`)
	if err != nil {
		idx.log.Error("Could not prepare index statement.", "err", err)
	}
	defer func() {
		for _, stmt := range []*sql.Stmt{upsert, remove, removeWorld} {
			if stmt != nil {
				_ = stmt.Close()
			}
		}
	}()

	var (
		tx      *sql.Tx
		opCount int
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := idx.db.BeginTx(ctx, nil)
		if err != nil {
			idx.log.Error("Could not begin index transaction.", "err", err)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			idx.log.Error("Could not commit index transaction.", "err", err)
		}
		tx = nil
		opCount = 0
	}
	rollback := func(err error) {
		idx.log.Error("Index write failed, discarding batch.", "err", err)
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}
	exec := func(stmt *sql.Stmt, args ...any) {
		if stmt == nil {
			return
		}
		begin()
		if tx == nil {
			return
		}
		if _, err := tx.Stmt(stmt).Exec(args...); err != nil {
			rollback(err)
			return
		}
		opCount++
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			commit()
			continue
		case r, ok := <-idx.ch:
			if !ok {
				commit()
				return
			}
			switch r.kind {
			case reqUpsert:
				hologram := 0
				if r.row.Hologram {
					hologram = 1
				}
				exec(upsert, r.row.World, r.row.Pos[0], r.row.Pos[1], r.row.Pos[2], r.row.Type, float64(r.row.Health),
					hologram, r.row.Updated.UTC().Format(time.RFC3339Nano))
			case reqDelete:
				exec(remove, r.row.World, r.row.Pos[0], r.row.Pos[1], r.row.Pos[2])
			case reqDeleteWorld:
				exec(removeWorld, r.row.World)
			case reqFlush:
				commit()
				close(r.done)
			}
			if opCount >= commitEvery {
				commit()
			}
		}
	}
}
