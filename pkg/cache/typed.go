package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// GetTyped deserializes a fresh cached JSON value into type T. Returns the
// zero value of T and false if the key is missing, expired, or the stored
// payload is not valid JSON for T.
func GetTyped[T any](s *Store, key string) (T, bool) {
	data, _, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// GetTypedStale deserializes a cached JSON value into type T, accepting
// expired entries within the store's stale window. The returned age lets
// callers mark the reading as old.
func GetTypedStale[T any](s *Store, key string) (T, time.Duration, bool) {
	data, age, ok := s.GetStale(key)
	if !ok {
		var zero T
		return zero, 0, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, 0, false
	}
	return v, age, true
}

// PutTyped serializes value as JSON and stores it under key with ttl.
func PutTyped[T any](s *Store, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal typed value for %q: %w", key, err)
	}
	return s.Put(key, data, ttl)
}
