// Package config loads the engine-wide configuration: the storage
// file layout constants and the capacity bounds that govern the
// free-block index and statement cache.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the engine-wide configuration, normally loaded from a TOML
// file alongside the data directory.
type Config struct {
	Storage       StorageConfig       `toml:"storage"`
	StatementCache StatementCacheConfig `toml:"statement_cache"`
	Snapshot      SnapshotConfig      `toml:"snapshot"`
}

// SnapshotConfig controls the encrypted catalog snapshot every table
// writes on close. An empty Path disables snapshotting entirely; an
// empty Passphrase with a non-empty Path still snapshots, just without
// encryption, matching OpenSQLCipherPersister's plain-SQLite fallback.
type SnapshotConfig struct {
	Path       string `toml:"path"`
	Passphrase string `toml:"passphrase"`
}

// StorageConfig fixes the on-disk layout constants: scale is the
// power-of-two divisor applied to byte
// offsets, fixedBlockSizeUnit is the alignment unit for block-sized
// allocations (blob/CLOB pages), and FreeListCapacity bounds each
// table's FreeBlockIndex before it must flush to the global manager.
type StorageConfig struct {
	Scale              int64 `toml:"scale"`
	FixedBlockSizeUnit int64 `toml:"fixed_block_size_unit"`
	MainBlockSize      int64 `toml:"main_block_size"`
	FreeListCapacity    int  `toml:"free_list_capacity"`

	// Path is the directory CreatePersistentTable writes each table's
	// encrypted row store into. Empty disables persistent tables
	// entirely — CreateTable's in-memory store remains available either
	// way.
	Path string `toml:"path"`
}

// StatementCacheConfig bounds statement residency. The cache itself
// never evicts on capacity — MaxEntries is loaded from the config but
// not read by the cache or by Stats, and is not an eviction trigger.
type StatementCacheConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// Default returns the engine's baseline configuration: scale=16,
// 4 KiB block unit, 16 MiB main block size, a 64-entry free list, and
// no statement-cache diagnostic ceiling.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Scale:              16,
			FixedBlockSizeUnit: 4096,
			MainBlockSize:      16 * 1024 * 1024,
			FreeListCapacity:    64,
		},
		StatementCache: StatementCacheConfig{
			MaxEntries: 0,
		},
	}
}

// Load parses a TOML configuration file at path, filling any field
// left zero-valued in the file with Default()'s value.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the storage layout constants are usable: scale
// and fixedBlockSizeUnit must be positive powers of two, and
// mainBlockSize must be at least one fixedBlockSizeUnit.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.Storage.Scale) {
		return fmt.Errorf("config: storage.scale must be a power of two, got %d", c.Storage.Scale)
	}
	if !isPowerOfTwo(c.Storage.FixedBlockSizeUnit) {
		return fmt.Errorf("config: storage.fixed_block_size_unit must be a power of two, got %d", c.Storage.FixedBlockSizeUnit)
	}
	if c.Storage.MainBlockSize < c.Storage.FixedBlockSizeUnit {
		return fmt.Errorf("config: storage.main_block_size (%d) must be >= fixed_block_size_unit (%d)",
			c.Storage.MainBlockSize, c.Storage.FixedBlockSizeUnit)
	}
	if c.Storage.FreeListCapacity <= 0 {
		return fmt.Errorf("config: storage.free_list_capacity must be positive, got %d", c.Storage.FreeListCapacity)
	}
	return nil
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}
