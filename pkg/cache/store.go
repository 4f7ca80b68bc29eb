// Package cache persists small JSON payloads between bar runs. Modules that
// fetch over the network (weather, crypto) park their last good response
// here so a restart does not begin with an empty bar and a failed fetch can
// fall back to stale data.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// StoreConfig holds configuration for a cache Store.
type StoreConfig struct {
	// Dir is the directory path where cache files are stored.
	Dir string

	// StaleFor is how long past expiry an entry may still be served by
	// GetStale. Default: 24 hours.
	StaleFor time.Duration

	// SweepInterval is how often the background goroutine removes entries
	// too stale to ever be served again. Default: 10 minutes.
	SweepInterval time.Duration
}

// envelope is the JSON structure persisted for each cache entry.
type envelope struct {
	Key     string          `json:"key"`
	Created int64           `json:"created"` // UnixNano
	TTLNS   int64           `json:"ttl_ns"`  // 0 = never expires
	Payload json.RawMessage `json:"payload"`
}

// Store is a disk-backed TTL cache. Each entry is one JSON file named by a
// hash of its key; writes are atomic via temp-file-then-rename, so readers
// never observe a torn entry.
type Store struct {
	cfg StoreConfig

	mu sync.Mutex // serializes writers; reads go straight to disk

	done      chan struct{} // signals sweep goroutine to stop
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore creates a new cache Store. The cache directory is created with
// 0755 permissions if it does not exist.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.StaleFor <= 0 {
		cfg.StaleFor = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", cfg.Dir, err)
	}

	s := &Store{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s, nil
}

// Put stores payload under key. A ttl of 0 means the entry never expires.
func (s *Store) Put(key string, payload []byte, ttl time.Duration) error {
	env := envelope{
		Key:     key,
		Created: time.Now().UnixNano(),
		TTLNS:   int64(ttl),
		Payload: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cache: marshal entry for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := atomicWrite(s.entryPath(hashKey(key)), data, s.cfg.Dir); err != nil {
		return fmt.Errorf("cache: write entry for %q: %w", key, err)
	}
	return nil
}

// Get retrieves the payload for key if it has not expired. The returned
// age is how long ago the entry was written.
func (s *Store) Get(key string) ([]byte, time.Duration, bool) {
	env, err := s.read(key)
	if err != nil {
		return nil, 0, false
	}
	age := time.Since(time.Unix(0, env.Created))
	if env.TTLNS > 0 && age > time.Duration(env.TTLNS) {
		return nil, 0, false
	}
	return env.Payload, age, true
}

// GetStale retrieves the payload for key even when it has expired, as long
// as it is not older than ttl+StaleFor. Modules use it to keep showing the
// previous reading when a refresh fails.
func (s *Store) GetStale(key string) ([]byte, time.Duration, bool) {
	env, err := s.read(key)
	if err != nil {
		return nil, 0, false
	}
	age := time.Since(time.Unix(0, env.Created))
	if env.TTLNS > 0 && age > time.Duration(env.TTLNS)+s.cfg.StaleFor {
		return nil, 0, false
	}
	return env.Payload, age, true
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.entryPath(hashKey(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete entry for %q: %w", key, err)
	}
	return nil
}

// Clear removes all entries from the cache directory.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: clear read dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".tmp-") {
			_ = os.Remove(filepath.Join(s.cfg.Dir, name))
		}
	}
	return nil
}

// Close stops the background sweep goroutine and waits for it to finish.
// It is safe to call Close multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}

// --- internal helpers ---

func (s *Store) entryPath(hash string) string {
	return filepath.Join(s.cfg.Dir, hash+".json")
}

// read loads and decodes the entry file for key.
func (s *Store) read(key string) (envelope, error) {
	var env envelope
	data, err := os.ReadFile(s.entryPath(hashKey(key)))
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	return env, nil
}

// sweepLoop periodically removes entries that even GetStale would refuse.
func (s *Store) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepStale()
		}
	}
}

// sweepStale deletes entry files that are corrupted or past ttl+StaleFor.
func (s *Store) sweepStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.cfg.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = os.Remove(path)
			continue
		}
		if env.TTLNS <= 0 {
			continue
		}
		age := time.Since(time.Unix(0, env.Created))
		if age > time.Duration(env.TTLNS)+s.cfg.StaleFor {
			_ = os.Remove(path)
		}
	}
}

// hashKey returns the first 16 hex characters of the SHA-256 hash of key.
// This produces a deterministic, filesystem-safe file name for any key.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:8])
}

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}
