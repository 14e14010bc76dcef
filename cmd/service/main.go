// Command service hosts the configured sources behind the MCP query
// tools. Sources are opened at startup; a failure to open any of them
// is fatal rather than degraded, so a running service always answers
// for every name in its configuration.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/astro-panda/queryable/pkg/config"
	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
	"github.com/astro-panda/queryable/pkg/sequence/badgerdb"
	"github.com/astro-panda/queryable/pkg/sequence/exceldb"
	"github.com/astro-panda/queryable/pkg/sequence/gormdb"
	"github.com/astro-panda/queryable/pkg/sequence/memory"
	"github.com/astro-panda/queryable/pkg/sequence/neo4jdb"
	"github.com/astro-panda/queryable/pkg/sequence/sqldb"
	"github.com/astro-panda/queryable/server/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	listen := flag.String("listen", "", "listen address, overrides the configured one")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.LoadConfigOrDefault()
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := logging.NewDefault(logging.ParseLevel(cfg.LogLevel))
	logger.Info("config: listen=%s, page_size=%d, sources=%d", cfg.Listen, cfg.DefaultPageSize, len(cfg.Sources))

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logger.Error("time zone %s: %v", cfg.TimeZone, err)
		os.Exit(1)
	}

	var collator *collate.Collator
	if cfg.Collation != "" {
		tag, err := language.Parse(cfg.Collation)
		if err != nil {
			logger.Error("collation %s: %v", cfg.Collation, err)
			os.Exit(1)
		}
		collator = collate.New(tag)
	}

	ctx := context.Background()
	registry := mcp.NewRegistry()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	for i := range cfg.Sources {
		sc := &cfg.Sources[i]
		src, closer, err := openSource(ctx, sc, location, logger)
		if err != nil {
			logger.Error("open source %s (%s): %v", sc.Name, sc.Driver, err)
			os.Exit(1)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		if err := registry.Register(src); err != nil {
			logger.Error("register source %s: %v", sc.Name, err)
			os.Exit(1)
		}
		logger.Info("source %s ready (%s)", sc.Name, sc.Driver)
	}

	deps := &mcp.ToolDeps{
		Sources:  registry,
		PageSize: cfg.DefaultPageSize,
		Location: location,
		Collator: collator,
		Log:      logger,
	}
	srv := mcp.NewServer(deps, mcp.Config{
		Listen:    cfg.Listen,
		AuthToken: cfg.AuthToken,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited: %v", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	}
}

// openSource builds the registry entry for one configured source.
// The returned closer releases the underlying connection, nil when
// there is nothing to release.
func openSource(ctx context.Context, sc *config.SourceConfig, loc *time.Location, logger logging.Logger) (*mcp.Source, func(), error) {
	switch sc.Driver {
	case "memory":
		return openMemory(sc, loc)

	case "sqlite", "mysql", "postgres":
		var dialect sqldb.Dialect
		switch sc.Driver {
		case "sqlite":
			dialect = &sqldb.SQLiteDialect{}
		case "mysql":
			dialect = &sqldb.MySQLDialect{}
		case "postgres":
			dialect = &sqldb.PostgresDialect{}
		}
		path := sc.Path
		if path == "" {
			path = sc.DSN
		}
		src, err := sqldb.Open(ctx, dialect, &sqldb.Config{
			Host:     sc.Host,
			Port:     sc.Port,
			User:     sc.User,
			Password: sc.Password,
			Database: sc.Database,
			Path:     path,
			SSLMode:  sc.StringOption("ssl_mode", ""),
			Schema:   sc.StringOption("schema", ""),
		}, sqldb.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		seq, err := src.Table(ctx, sc.Table)
		if err != nil {
			src.Close()
			return nil, nil, err
		}
		return mcp.NewSource(sc.Name, seq.TableColumns(), seq), func() { src.Close() }, nil

	case "gorm":
		driverName := sc.StringOption("driver", "sqlite")
		pool, err := sql.Open(driverName, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.PingContext(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		src, err := gormdb.Open(driverName, pool, gormdb.WithLogger(logger))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		seq, err := src.Table(ctx, sc.Table)
		if err != nil {
			src.Close()
			return nil, nil, err
		}
		return mcp.NewSource(sc.Name, seq.TableColumns(), seq), func() { src.Close() }, nil

	case "badger":
		store, err := badgerdb.Open(&badgerdb.Config{
			Dir:        sc.Path,
			InMemory:   sc.BoolOption("in_memory", false),
			SyncWrites: sc.BoolOption("sync_writes", false),
		}, badgerdb.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		seq, err := store.Table(sc.Table)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return mcp.NewSource(sc.Name, seq.TableColumns(), seq), func() { store.Close() }, nil

	case "excel":
		src, err := exceldb.Open(&exceldb.Config{
			Path:  sc.Path,
			Sheet: sc.Sheet,
		}, exceldb.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return mcp.NewSource(sc.Name, src.Columns(), src.Rows()), nil, nil

	case "neo4j":
		src, err := neo4jdb.Open(ctx, &neo4jdb.Config{
			URI:      sc.URI(),
			Username: sc.User,
			Password: sc.Password,
			Database: sc.Database,
		}, neo4jdb.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		seq, err := src.Nodes(ctx, sc.Table)
		if err != nil {
			src.Close(ctx)
			return nil, nil, err
		}
		return mcp.NewSource(sc.Name, seq.NodeColumns(), seq), func() { src.Close(ctx) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown driver: %s", sc.Driver)
	}
}

// openMemory builds an in-process source from inline configuration:
// options.columns declares [{name, kind, nullable}] and options.rows
// holds the data as JSON objects.
func openMemory(sc *config.SourceConfig, loc *time.Location) (*mcp.Source, func(), error) {
	rawCols, ok := sc.Options["columns"].([]interface{})
	if !ok || len(rawCols) == 0 {
		return nil, nil, fmt.Errorf("memory source needs options.columns")
	}

	cols := make([]fields.Column, 0, len(rawCols))
	for i, rc := range rawCols {
		m, ok := rc.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("options.columns[%d] is not an object", i)
		}
		name, _ := m["name"].(string)
		if name == "" {
			return nil, nil, fmt.Errorf("options.columns[%d] has no name", i)
		}
		kindName, _ := m["kind"].(string)
		kind, err := parseKind(kindName)
		if err != nil {
			return nil, nil, fmt.Errorf("options.columns[%d]: %w", i, err)
		}
		nullable, _ := m["nullable"].(bool)
		cols = append(cols, fields.Column{Name: name, Kind: kind, Nullable: nullable})
	}

	rawRows, _ := sc.Options["rows"].([]interface{})
	rows := make([]sequence.Row, 0, len(rawRows))
	for i, rr := range rawRows {
		m, ok := rr.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("options.rows[%d] is not an object", i)
		}
		row := sequence.Row{}
		for _, col := range cols {
			v, present := m[col.Name]
			if !present || v == nil {
				continue
			}
			cv, err := convertCell(v, col.Kind, loc)
			if err != nil {
				return nil, nil, fmt.Errorf("options.rows[%d].%s: %w", i, col.Name, err)
			}
			row[col.Name] = cv
		}
		rows = append(rows, row)
	}

	return mcp.NewSource(sc.Name, cols, memory.FromSlice(rows)), nil, nil
}

func parseKind(name string) (fields.Kind, error) {
	switch strings.ToLower(name) {
	case "bool":
		return fields.KindBool, nil
	case "int", "integer":
		return fields.KindInt, nil
	case "float", "number":
		return fields.KindFloat, nil
	case "string", "text", "":
		return fields.KindString, nil
	case "time", "timestamp":
		return fields.KindTime, nil
	default:
		return fields.KindInvalid, fmt.Errorf("unknown kind: %s", name)
	}
}

// convertCell maps a decoded JSON value to the declared column kind.
// JSON numbers arrive as float64; time values arrive as RFC 3339 text
// and zoneless timestamps are read in the configured location.
func convertCell(v interface{}, kind fields.Kind, loc *time.Location) (interface{}, error) {
	switch kind {
	case fields.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case fields.KindInt:
		if f, ok := v.(float64); ok {
			return int64(f), nil
		}
	case fields.KindFloat:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case fields.KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case fields.KindTime:
		s, ok := v.(string)
		if !ok {
			break
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, loc); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
			return t, nil
		}
		return nil, fmt.Errorf("cannot parse %q as time", s)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, kind)
}
