// Package config provides TOML-backed load/save for the engine's
// process-wide settings (store location, hashing algorithm, lock timeout,
// in-memory cache sizing), grounded on the teacher's
// pkg/encoding/toml.go + pkg/encoding/common.go LoadAndUnmarshal /
// MarshalAndSave atomic-write pattern.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/internal/atomicfile"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// Config holds every setting the engine needs that is not supplied
// per-call by the embedding tool.
type Config struct {
	// StorePath is the directory containing the persistent indexed store's
	// Pebble database and lock file.
	StorePath string `toml:"store_path"`
	// HashAlgorithm selects the content-hashing algorithm used for regular
	// file snapshots and tree aggregate hashes.
	HashAlgorithm hashing.Algorithm `toml:"hash_algorithm"`
	// LockTimeoutSeconds bounds how long a process waits to acquire the
	// store's cross-process file lock before giving up. Stored as an integer
	// number of seconds because time.Duration has no native TOML
	// representation; use LockTimeout for the parsed form.
	LockTimeoutSeconds int `toml:"lock_timeout_seconds"`
	// RecordCacheEntries bounds the in-memory LRU front for the record
	// keyspace (see store.Options.RecordCacheEntries).
	RecordCacheEntries int `toml:"record_cache_entries"`
	// BlobCacheEntries bounds the in-memory LRU front for the blob keyspace
	// (see store.Options.BlobCacheEntries).
	BlobCacheEntries int `toml:"blob_cache_entries"`
}

// LockTimeout returns LockTimeoutSeconds as a time.Duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// Default returns the configuration used when no configuration file is
// present.
func Default(storePath string) *Config {
	return &Config{
		StorePath:          storePath,
		HashAlgorithm:      hashing.AlgorithmBLAKE3,
		LockTimeoutSeconds: 30,
		RecordCacheEntries: 4096,
		BlobCacheEntries:   1024,
	}
}

// Load reads and decodes a configuration file at path. If the file does not
// exist, Default(storePath) is returned instead (not an error), mirroring
// the teacher's tolerance of an absent, optional configuration file.
func Load(path, storePath string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(storePath), nil
		}
		return nil, errors.Wrap(err, "unable to load configuration file")
	}

	config := Default(storePath)
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal configuration data")
	}
	return config, nil
}

// Save marshals and atomically writes the configuration to path with
// read/write permissions for the user only.
func Save(path string, config *Config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(config); err != nil {
		return errors.Wrap(err, "unable to marshal configuration")
	}

	if err := atomicfile.Write(path, buffer.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "unable to write configuration data")
	}
	return nil
}
