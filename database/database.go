// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aaroncox/drops/database/models"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Config contains the options for creating a database instance
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
}

// Database combines the relational metadata store holding all ledger
// tables with a blob store holding immutable operation receipts and
// frozen epoch randomness digests. Both stores commit in lockstep via Txn.
type Database struct {
	logger   *slog.Logger
	metadata *gorm.DB
	blob     *badger.DB
	dataDir  string
}

// Metadata returns the underlying metadata store handle
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// Blob returns the underlying blob store handle
func (d *Database) Blob() *badger.DB {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if sqlDB, sqlErr := d.metadata.DB(); sqlErr == nil {
		err = errors.Join(err, sqlDB.Close())
	} else {
		err = errors.Join(err, sqlErr)
	}
	err = errors.Join(err, d.blob.Close())
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure tracing for GORM
	if err := d.metadata.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	// Check that both stores agree on the last commit
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance with optional persistence using the
// provided data directory. An empty data directory keeps both stores in
// memory, which is used for testing.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var metadataDb *gorm.DB
	var err error
	if cfg.DataDir == "" {
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata store: %w", err)
		}
	} else {
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(cfg.DataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write, increase cache size to 50MB (from 2MB)
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata store: %w", err)
		}
	}
	blobDb, err := openBlob(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	db := &Database{
		logger:   cfg.Logger,
		metadata: metadataDb,
		blob:     blobDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	// Create table schemas
	if err := metadataDb.AutoMigrate(&CommitTimestamp{}); err != nil {
		return db, err
	}
	for _, model := range models.MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := metadataDb.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

func openBlob(dataDir string) (*badger.DB, error) {
	var opts badger.Options
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(dataDir, "blob"))
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}
