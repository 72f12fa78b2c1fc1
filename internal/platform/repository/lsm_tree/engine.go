package lsm_tree

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

const (
	uncommittedLogName = "uncommitted.log"
	committingLogName  = "committing.log"
)

var segmentFilePattern = regexp.MustCompile(`^(\d+)\.data$`)

// EngineConfig tunes the rotate/flush/compact thresholds (spec §4.7,
// §9 "position-index prefix length... a tunable constant").
type EngineConfig struct {
	RotateThreshold           int
	CompactionMaxSegmentBytes int64
	WorkerInterval            time.Duration
	PositionIndexPrefixLen    int
}

// DefaultEngineConfig mirrors the spec's stated defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RotateThreshold:           10000,
		CompactionMaxSegmentBytes: 50 * 1024 * 1024,
		WorkerInterval:            500 * time.Millisecond,
		PositionIndexPrefixLen:    7,
	}
}

// Engine owns the WriteBuffer, an optional frozen "committing" buffer, an
// ordered collection of segments, and a background worker. It coordinates
// rotate -> flush -> compact and routes reads with correct layer
// precedence (spec §4.7).
type Engine struct {
	dirPath string
	cfg     EngineConfig

	liveMu sync.RWMutex
	live   *WriteBuffer

	frozenMu sync.Mutex
	frozen   *WriteBuffer

	segMu    sync.RWMutex
	segments *treemap.Map // int64 segment id -> *Segment, ascending

	nextCommitID atomic.Int64
	running      atomic.Bool
	wg           sync.WaitGroup
}

// Open constructs an Engine over dirPath, creating the directory if
// missing, reconstructing segments already on disk, and starting the
// background worker.
func Open(dirPath string, cfg EngineConfig) (*Engine, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("lsm_tree: create dir %s: %w", dirPath, err)
	}

	e := &Engine{
		dirPath:  dirPath,
		cfg:      cfg,
		segments: treemap.NewWith(utils.Int64Comparator),
	}

	maxID, err := e.loadSegments()
	if err != nil {
		return nil, err
	}
	e.nextCommitID.Store(maxID + 1)

	live, err := NewWriteBuffer(filepath.Join(dirPath, uncommittedLogName))
	if err != nil {
		return nil, err
	}
	e.setLive(live)

	// a leftover committing.log means a prior process crashed between
	// rotate() and flush(); pick it back up as the frozen buffer so the
	// next flush (from the background worker, AwaitIdle or Close) carries
	// it through to a segment.
	if _, err := os.Stat(filepath.Join(dirPath, committingLogName)); err == nil {
		frozen, err := NewWriteBuffer(filepath.Join(dirPath, committingLogName))
		if err != nil {
			return nil, err
		}
		e.frozen = frozen
	}

	e.running.Store(true)
	e.wg.Add(1)
	go e.backgroundLoop()

	return e, nil
}

func (e *Engine) loadSegments() (int64, error) {
	entries, err := os.ReadDir(e.dirPath)
	if err != nil {
		return -1, fmt.Errorf("lsm_tree: read dir %s: %w", e.dirPath, err)
	}

	maxID := int64(-1)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := segmentFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		seg, err := OpenSegment(id, filepath.Join(e.dirPath, entry.Name()), e.cfg.PositionIndexPrefixLen)
		if err != nil {
			return -1, err
		}
		e.segments.Put(id, seg)
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

// getLive returns the current live WriteBuffer under liveMu, so a reader
// never observes a torn or stale pointer while Rotate swaps it out.
func (e *Engine) getLive() *WriteBuffer {
	e.liveMu.RLock()
	defer e.liveMu.RUnlock()
	return e.live
}

func (e *Engine) setLive(wb *WriteBuffer) {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	e.live = wb
}

// Set stores key/value in the live WriteBuffer, rotating synchronously if
// the buffer has grown past the configured threshold.
func (e *Engine) Set(key, value []byte) error {
	live := e.getLive()
	if err := live.Set(key, value); err != nil {
		return err
	}
	if live.Size() > e.cfg.RotateThreshold {
		e.Rotate()
	}
	return nil
}

// Remove deletes key by writing a tombstone through the live WriteBuffer.
func (e *Engine) Remove(key []byte) error {
	live := e.getLive()
	if err := live.Remove(key); err != nil {
		return err
	}
	if live.Size() > e.cfg.RotateThreshold {
		e.Rotate()
	}
	return nil
}

// Get searches, in order: the live WriteBuffer, the frozen buffer (if any),
// then segments newest-to-oldest, stopping at the first layer that
// resolves the key — including a tombstone match, which yields "not
// found" without consulting any older layer (spec §4.7, §8 properties 3
// and 6).
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if raw, ok := e.getLive().Lookup(key); ok {
		return resolve(raw)
	}

	e.frozenMu.Lock()
	frozen := e.frozen
	e.frozenMu.Unlock()
	if frozen != nil {
		if raw, ok := frozen.Lookup(key); ok {
			return resolve(raw)
		}
	}

	e.segMu.RLock()
	defer e.segMu.RUnlock()
	keys := e.segments.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		seg := e.mustSegment(keys[i])
		value, found, tombstone, err := seg.lookup(key)
		if err != nil {
			return nil, false, err
		}
		if tombstone {
			return nil, false, nil
		}
		if found {
			return value, true, nil
		}
	}
	return nil, false, nil
}

func resolve(raw []byte) ([]byte, bool, error) {
	if len(raw) == 1 && raw[0] == 0x00 {
		return nil, false, nil
	}
	return raw, true, nil
}

func (e *Engine) mustSegment(id interface{}) *Segment {
	v, _ := e.segments.Get(id)
	return v.(*Segment)
}

// Rotate (aka prepare_commit) freezes the live WriteBuffer so writes can
// continue into a fresh one. If a frozen buffer already exists and is
// non-empty, Rotate returns silently — flush hasn't caught up yet.
func (e *Engine) Rotate() {
	e.frozenMu.Lock()
	defer e.frozenMu.Unlock()

	if e.frozen != nil && !e.frozen.Empty() {
		return
	}

	uncommittedPath := filepath.Join(e.dirPath, uncommittedLogName)
	committingPath := filepath.Join(e.dirPath, committingLogName)

	if err := e.getLive().Close(); err != nil {
		log.Printf("lsm_tree: rotate: close live wal: %v", err)
		reopened, reopenErr := NewWriteBuffer(uncommittedPath)
		if reopenErr == nil {
			e.setLive(reopened)
		}
		return
	}
	if err := os.Rename(uncommittedPath, committingPath); err != nil {
		log.Printf("lsm_tree: rotate: rename wal: %v", err)
		reopened, reopenErr := NewWriteBuffer(uncommittedPath)
		if reopenErr == nil {
			e.setLive(reopened)
		}
		return
	}

	frozen, err := NewWriteBuffer(committingPath)
	if err != nil {
		log.Printf("lsm_tree: rotate: reopen committing wal: %v", err)
		return
	}
	e.frozen = frozen

	live, err := NewWriteBuffer(uncommittedPath)
	if err != nil {
		log.Printf("lsm_tree: rotate: open fresh live wal: %v", err)
		return
	}
	e.setLive(live)
}

// Flush (aka commit) converts the frozen buffer's WAL into a new Segment
// and drops the frozen buffer. A no-op if the frozen buffer is empty.
// frozenMu is held for the whole check-build-clear sequence so a
// concurrent caller (the background worker and AwaitIdle both call
// Flush) can never observe the same frozen buffer as non-empty twice and
// flush it into two redundant segments.
func (e *Engine) Flush() {
	e.frozenMu.Lock()
	defer e.frozenMu.Unlock()

	if e.frozen == nil || e.frozen.Empty() {
		return
	}
	frozen := e.frozen

	id := e.nextCommitID.Add(1) - 1
	segPath := filepath.Join(e.dirPath, fmt.Sprintf("%d.data", id))
	committingPath := filepath.Join(e.dirPath, committingLogName)

	if err := FromLog(segPath, committingPath); err != nil {
		log.Printf("lsm_tree: flush: from_log: %v", err)
		return
	}

	seg, err := OpenSegment(id, segPath, e.cfg.PositionIndexPrefixLen)
	if err != nil {
		log.Printf("lsm_tree: flush: open new segment: %v", err)
		return
	}

	e.segMu.Lock()
	e.segments.Put(id, seg)
	e.segMu.Unlock()

	if err := frozen.Close(); err != nil {
		log.Printf("lsm_tree: flush: close frozen wal: %v", err)
	}
	if err := os.Remove(committingPath); err != nil && !os.IsNotExist(err) {
		log.Printf("lsm_tree: flush: remove committing log: %v", err)
	}
	e.frozen = nil
}

// Compact walks the segments in ascending id order, merging adjacent pairs
// whose combined size stays within CompactionMaxSegmentBytes, then swaps
// the results into the segment set under one lock (spec §4.7). A merged
// segment takes over the newer input's id and file name, so it keeps that
// input's place in Get's newest-to-oldest order relative to segments that
// were not merged.
func (e *Engine) Compact() {
	e.segMu.RLock()
	ids := e.segments.Keys()
	segs := make([]*Segment, len(ids))
	for i, id := range ids {
		segs[i] = e.mustSegment(id)
	}
	e.segMu.RUnlock()

	consumed := make(map[int64]bool)
	for i := 0; i+1 < len(segs); i++ {
		older, newer := segs[i], segs[i+1]
		if consumed[older.ID()] || consumed[newer.ID()] {
			continue
		}
		olderSize, err := older.Size()
		if err != nil {
			log.Printf("lsm_tree: compact: stat %s: %v", older.Path(), err)
			continue
		}
		newerSize, err := newer.Size()
		if err != nil {
			log.Printf("lsm_tree: compact: stat %s: %v", newer.Path(), err)
			continue
		}
		if olderSize+newerSize > e.cfg.CompactionMaxSegmentBytes {
			continue
		}

		outputID := newer.ID()
		outputPath := newer.Path()
		if err := MergeSegments(outputPath, newer.Path(), older.Path()); err != nil {
			log.Printf("lsm_tree: compact: merge %s+%s: %v", older.Path(), newer.Path(), err)
			continue
		}

		merged, err := OpenSegment(outputID, outputPath, e.cfg.PositionIndexPrefixLen)
		if err != nil {
			log.Printf("lsm_tree: compact: open merged segment: %v", err)
			continue
		}

		consumed[older.ID()] = true
		consumed[newer.ID()] = true

		e.segMu.Lock()
		e.segments.Remove(older.ID())
		e.segments.Put(outputID, merged)
		e.segMu.Unlock()

		older.Close()
		newer.Close()
		os.Remove(older.Path())
	}
}

// AwaitIdle blocks until both the live WriteBuffer and the frozen buffer
// are empty, repeatedly invoking Rotate and yielding briefly. Clients that
// require flush-before-shutdown call this.
func (e *Engine) AwaitIdle() {
	for {
		e.Rotate()
		e.Flush()

		e.frozenMu.Lock()
		frozenEmpty := e.frozen == nil || e.frozen.Empty()
		e.frozenMu.Unlock()

		if e.getLive().Empty() && frozenEmpty {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (e *Engine) backgroundLoop() {
	defer e.wg.Done()
	for e.running.Load() {
		e.Compact()
		e.Flush()
		time.Sleep(e.cfg.WorkerInterval)
	}
}

// Close stops the background worker, then performs a final
// flush/rotate/flush sequence to persist any residual state, matching the
// spec's destructor contract (§4.7).
func (e *Engine) Close() error {
	e.running.Store(false)
	e.wg.Wait()

	e.Flush()
	e.Rotate()
	e.Flush()

	if err := e.getLive().Close(); err != nil {
		return fmt.Errorf("lsm_tree: close live wal: %w", err)
	}

	e.segMu.Lock()
	defer e.segMu.Unlock()
	for _, id := range e.segments.Keys() {
		if err := e.mustSegment(id).Close(); err != nil {
			log.Printf("lsm_tree: close: segment %v: %v", id, err)
		}
	}
	return nil
}
