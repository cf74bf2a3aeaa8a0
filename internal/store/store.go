// Package store provides a thin bbolt wrapper for bazi's local data store.
//
// The store keeps what the user chose to keep: named form profiles and a
// journal of readings calculated from the command line. Results are never
// served from it in place of a request.
//
// Buckets:
//
//	profiles — saved form inputs keyed by profile name
//	history  — calculated readings keyed by fixed-width UTC timestamp
//	_meta    — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/bazi/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketProfiles = []byte("profiles")
	bucketHistory  = []byte("history")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"profiles", "history"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProfiles, bucketHistory, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the stored schema version string.
func (s *Store) SchemaVersion() (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket(bucketInternal).Get([]byte("schema_version")))
		return nil
	})
	return v, err
}

// ─── Profiles ─────────────────────────────────────────────────────────────────

// ValidateProfileName rejects names that cannot be used as keys.
func ValidateProfileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if strings.ContainsAny(name, "\n\r\t") {
		return fmt.Errorf("profile name %q contains control characters", name)
	}
	return nil
}

// PutProfile stores p under p.Name, stamping SavedAt when it is zero.
// An existing profile with the same name is replaced.
func (s *Store) PutProfile(p model.Profile) error {
	if err := ValidateProfileName(p.Name); err != nil {
		return err
	}
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProfiles).Put([]byte(p.Name), data)
	})
}

// GetProfile retrieves a profile by name.
// Returns (profile, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetProfile(name string) (model.Profile, bool, error) {
	var p model.Profile
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketProfiles).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return p, false, fmt.Errorf("reading profile %q: %w", name, err)
	}
	return p, found, nil
}

// ListProfiles returns all profiles sorted by name.
func (s *Store) ListProfiles() ([]model.Profile, error) {
	var out []model.Profile
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProfiles).ForEach(func(k, v []byte) error {
			var p model.Profile
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decoding profile %q: %w", k, err)
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}

// DeleteProfile removes a profile. It reports whether the profile existed.
func (s *Store) DeleteProfile(name string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		existed = b.Get([]byte(name)) != nil
		return b.Delete([]byte(name))
	})
	return existed, err
}

// MarkProfileRun records that the profile was just calculated.
func (s *Store) MarkProfileRun(name string, id model.RecordID, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("profile %q not found", name)
		}
		var p model.Profile
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		at = at.UTC()
		p.LastRunAt = &at
		p.LastRecordID = id
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), data)
	})
}

// ─── History ──────────────────────────────────────────────────────────────────

// historyKeyLayout keeps nanoseconds fixed-width so keys sort by time.
// A fixed-width bucket sequence follows it to keep equal timestamps apart.
const historyKeyLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryEntry is one journaled calculation.
type HistoryEntry struct {
	At      time.Time      `json:"at"`
	Profile string         `json:"profile,omitempty"`
	Request model.Request  `json:"request"`
	Reading *model.Reading `json:"reading"`
}

// AppendHistory journals a calculation under its timestamp and the next
// bucket sequence number.
func (s *Store) AppendHistory(e HistoryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s#%020d", e.At.Format(historyKeyLayout), seq)
		return b.Put([]byte(key), data)
	})
}

// ListHistory returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) ListHistory(limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var e HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding history %s: %w", k, err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			err := b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			})
			if err != nil {
				return err
			}
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !knownBucket(name) {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file to reclaim space freed by
// deletes, then swaps it into place. The store stays open on the new file.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	if fi, statErr := os.Stat(path); statErr == nil {
		before = fi.Size()
	}

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("opening compaction target: %w", err)
	}
	if err := bolt.Compact(dst, s.db, 1<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return before, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return before, 0, fmt.Errorf("replacing db: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("reopening db: %w", err)
	}
	s.db = db
	if fi, statErr := os.Stat(path); statErr == nil {
		after = fi.Size()
	}
	return before, after, nil
}

func knownBucket(name string) bool {
	return slices.Contains(AllBuckets, name)
}
