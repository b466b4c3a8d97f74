// Package store persists per-tick telemetry in BoltDB so runs can be inspected
// after the fact. Every run gets its own nested bucket under "runs", keyed by
// the tick number in big-endian order so cursor order is tick order.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"DiffDrive/internal/model"
)

var (
	runsBucket = []byte("runs")
	metaBucket = []byte("meta")

	// ErrNoRun is returned when the requested run does not exist.
	ErrNoRun = errors.New("run not found")
	// ErrEmpty is returned when a run has no telemetry yet.
	ErrEmpty = errors.New("no telemetry recorded")
)

// RunInfo summarises one recorded run.
type RunInfo struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	Started   time.Time `json:"started"`
	Samples   int       `json:"samples"`
}

type runMeta struct {
	VehicleID string    `json:"vehicle_id"`
	Started   time.Time `json:"started"`
}

// Recorder appends telemetry to the current run.
type Recorder struct {
	DB *bbolt.DB

	mu  sync.RWMutex
	run string
}

// Open opens (or creates) the database at path and starts a new run for vehicleID.
func Open(path, vehicleID string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[store] failed to create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[store] failed to open BoltDB: %w", err)
	}
	r := &Recorder{DB: db}
	if _, err := r.NewRun(vehicleID); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewRun starts a fresh run and makes it current.
func (r *Recorder) NewRun(vehicleID string) (string, error) {
	id := uuid.NewString()
	meta, err := json.Marshal(runMeta{VehicleID: vehicleID, Started: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	err = r.DB.Update(func(tx *bbolt.Tx) error {
		runs, err := tx.CreateBucketIfNotExists(runsBucket)
		if err != nil {
			return err
		}
		if _, err := runs.CreateBucket([]byte(id)); err != nil {
			return err
		}
		m, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		return m.Put([]byte(id), meta)
	})
	if err != nil {
		return "", fmt.Errorf("[store] create run: %w", err)
	}
	r.mu.Lock()
	r.run = id
	r.mu.Unlock()
	log.Printf("[store] recording run %s for vehicle %s", id, vehicleID)
	return id, nil
}

// CurrentRun returns the ID of the run Append writes to.
func (r *Recorder) CurrentRun() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.run
}

func tickKey(tick uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, tick)
	return k
}

// Append stores one snapshot in the current run. A repeated tick overwrites.
func (r *Recorder) Append(t model.Telemetry) error {
	v, err := json.Marshal(t)
	if err != nil {
		return err
	}
	run := r.CurrentRun()
	return r.DB.Update(func(tx *bbolt.Tx) error {
		b := runBucket(tx, run)
		if b == nil {
			return ErrNoRun
		}
		return b.Put(tickKey(t.Tick), v)
	})
}

// Run appends every snapshot received on in until ctx is done or in closes.
func (r *Recorder) Run(ctx context.Context, in <-chan model.Telemetry) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			if err := r.Append(t); err != nil {
				log.Printf("[store] append err: %v", err)
			}
		}
	}
}

func runBucket(tx *bbolt.Tx, run string) *bbolt.Bucket {
	runs := tx.Bucket(runsBucket)
	if runs == nil {
		return nil
	}
	return runs.Bucket([]byte(run))
}

// Latest returns the newest snapshot of run; an empty run ID means the current run.
func (r *Recorder) Latest(run string) (model.Telemetry, error) {
	if run == "" {
		run = r.CurrentRun()
	}
	var t model.Telemetry
	err := r.DB.View(func(tx *bbolt.Tx) error {
		b := runBucket(tx, run)
		if b == nil {
			return ErrNoRun
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return ErrEmpty
		}
		return json.Unmarshal(v, &t)
	})
	return t, err
}

// Samples returns the snapshots of run with from <= tick < to. A zero to means
// no upper bound.
func (r *Recorder) Samples(run string, from, to uint64) ([]model.Telemetry, error) {
	var out []model.Telemetry
	err := r.DB.View(func(tx *bbolt.Tx) error {
		b := runBucket(tx, run)
		if b == nil {
			return ErrNoRun
		}
		c := b.Cursor()
		for k, v := c.Seek(tickKey(from)); k != nil; k, v = c.Next() {
			if to != 0 && binary.BigEndian.Uint64(k) >= to {
				break
			}
			var t model.Telemetry
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("tick %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

// Runs lists every recorded run, oldest first.
func (r *Recorder) Runs() ([]RunInfo, error) {
	var out []RunInfo
	err := r.DB.View(func(tx *bbolt.Tx) error {
		runs := tx.Bucket(runsBucket)
		if runs == nil {
			return nil
		}
		meta := tx.Bucket(metaBucket)
		return runs.ForEach(func(k, v []byte) error {
			if v != nil {
				// not a nested bucket
				return nil
			}
			info := RunInfo{ID: string(k), Samples: runs.Bucket(k).Stats().KeyN}
			if meta != nil {
				if raw := meta.Get(k); raw != nil {
					var m runMeta
					if err := json.Unmarshal(raw, &m); err == nil {
						info.VehicleID, info.Started = m.VehicleID, m.Started
					}
				}
			}
			out = append(out, info)
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out, err
}

// Close closes the database.
func (r *Recorder) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("[store] error closing BoltDB: %w", err)
	}
	log.Println("[store] Closed BoltDB connection")
	return nil
}
