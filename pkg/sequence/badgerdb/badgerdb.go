// Package badgerdb stores rows in a Badger key-value store and scans
// them back as sequences. Rows serialize to JSON under row:{table}:{pk}
// keys, table schemas under table:{name}. The store offers no query
// engine, so filtering and ordering always run on the scanned rows.
package badgerdb

import (
	"encoding/json"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Config describes where the store keeps its data.
type Config struct {
	Dir        string `json:"dir"`
	InMemory   bool   `json:"in_memory"`
	SyncWrites bool   `json:"sync_writes"`
}

// Store owns a Badger database holding tables of JSON-encoded rows.
type Store struct {
	db  *badger.DB
	log logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the no-op logger. Badger's own messages are
// forwarded to it as well.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open opens or creates the database described by the config.
func Open(cfg *Config, opts ...Option) (*Store, error) {
	s := &Store{log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if !cfg.InMemory && cfg.Dir == "" {
		return nil, sequence.NewErrConnectionFailed("badger", "no data directory configured")
	}

	bopts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithSyncWrites(cfg.SyncWrites).WithLogger(badgerLogger{s.log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, sequence.NewErrConnectionFailed("badger", err.Error())
	}
	s.db = db
	return s, nil
}

// FromDB wraps an already-opened database.
func FromDB(db *badger.DB, opts ...Option) *Store {
	s := &Store{db: db, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying database.
func (s *Store) DB() *badger.DB { return s.db }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// tableInfo is the stored schema record. Kinds persist by name so the
// record stays readable and stable.
type tableInfo struct {
	Name    string       `json:"name"`
	Columns []columnInfo `json:"columns"`
}

type columnInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Nullable bool   `json:"nullable"`
}

var kindNames = map[string]fields.Kind{
	"bool":   fields.KindBool,
	"int":    fields.KindInt,
	"float":  fields.KindFloat,
	"string": fields.KindString,
	"time":   fields.KindTime,
	"bytes":  fields.KindBytes,
}

func parseKind(name string) fields.Kind {
	if k, ok := kindNames[name]; ok {
		return k
	}
	return fields.KindString
}

// CreateTable records a table schema. Rows written before the schema
// exists are rejected by Put.
func (s *Store) CreateTable(table string, cols []fields.Column) error {
	if table == "" {
		return fmt.Errorf("empty table name")
	}
	if len(cols) == 0 {
		return fmt.Errorf("table %s needs at least one column", table)
	}

	info := tableInfo{Name: table, Columns: make([]columnInfo, 0, len(cols))}
	for _, col := range cols {
		info.Columns = append(info.Columns, columnInfo{
			Name:     col.Name,
			Kind:     col.Kind.String(),
			Nullable: col.Nullable,
		})
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode schema %s: %w", table, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tableKey(table), data)
	})
}

// Tables lists the recorded table names.
func (s *Store) Tables() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixTable)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), prefixTable))
		}
		return nil
	})
	return names, err
}

// Columns loads a table's recorded schema.
func (s *Store) Columns(table string) ([]fields.Column, error) {
	var info tableInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(table))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("table %s not found", table)
	}
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", table, err)
	}

	cols := make([]fields.Column, 0, len(info.Columns))
	for _, ci := range info.Columns {
		cols = append(cols, fields.Column{
			Name:     ci.Name,
			Kind:     parseKind(ci.Kind),
			Nullable: ci.Nullable,
		})
	}
	return cols, nil
}

// Put writes one row under an explicit primary key.
func (s *Store) Put(table, key string, row sequence.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(table)); err != nil {
			return fmt.Errorf("table %s not found", table)
		}
		return txn.Set(rowKey(table, key), data)
	})
}

// Seed writes rows in bulk, keying by the id column when present and
// by position otherwise.
func (s *Store) Seed(table string, rows []sequence.Row) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(table)); err != nil {
			return fmt.Errorf("table %s not found", table)
		}
		for i, row := range rows {
			key := fmt.Sprintf("%08d", i)
			if v, ok := row["id"]; ok && v != nil {
				key = formatKey(v)
			}
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			if err := txn.Set(rowKey(table, key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes one row.
func (s *Store) Delete(table, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(rowKey(table, key))
	})
}

// Table builds a sequence over the named table's rows.
func (s *Store) Table(table string) (*Sequence, error) {
	cols, err := s.Columns(table)
	if err != nil {
		return nil, err
	}
	return &Sequence{
		store: s,
		table: table,
		cols:  cols,
		reg:   fields.FromColumns(cols),
	}, nil
}

// badgerLogger forwards Badger's internal messages to the store
// logger. Info and debug both land at debug; Badger's info output is
// operational noise.
type badgerLogger struct {
	log logging.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Error("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warn("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Debug("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Debug("badger: "+strings.TrimRight(format, "\n"), args...)
}
