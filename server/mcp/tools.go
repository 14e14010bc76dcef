package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/collate"

	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/paging"
	"github.com/astro-panda/queryable/pkg/queryable"
	"github.com/astro-panda/queryable/pkg/sequence"
)

type contextKey string

// ctxKeyDenied marks requests whose bearer token failed validation.
// Absence means the transport either validated the token or has no
// token configured.
const ctxKeyDenied contextKey = "mcp_denied"

func denied(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyDenied).(bool)
	return v
}

// ToolDeps holds shared dependencies for MCP tool handlers.
type ToolDeps struct {
	Sources  *Registry
	PageSize int
	Location *time.Location
	Collator *collate.Collator
	Log      logging.Logger
}

func (d *ToolDeps) logger() logging.Logger {
	if d.Log == nil {
		return logging.NewNop()
	}
	return d.Log
}

// HandleQuery runs one filtered, sorted, paged query against a
// registered source and returns the connection envelope as JSON.
func (d *ToolDeps) HandleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied(ctx) {
		return mcp.NewToolResultError("unauthorized: missing or invalid bearer token"), nil
	}

	reqID := uuid.NewString()
	log := d.logger()

	name := request.GetString("source", "")
	if name == "" {
		return mcp.NewToolResultError("source parameter is required"), nil
	}
	src, ok := d.Sources.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source: %s", name)), nil
	}

	opts := []queryable.Option[sequence.Row]{
		queryable.WithArguments[sequence.Row](paging.Args(request.GetArguments())),
		queryable.WithDefaultPageSize[sequence.Row](d.PageSize),
		queryable.WithLogger[sequence.Row](log),
	}

	if raw := request.GetString("filter", ""); raw != "" {
		var dict map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &dict); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("filter is not a JSON object: %v", err)), nil
		}
		opts = append(opts, queryable.WithFilterSource[sequence.Row](&queryable.Filter{Fields: dict}))
	}

	if raw := request.GetString("sort", ""); raw != "" {
		keys, err := parseSortKeys(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts = append(opts, queryable.WithSortSource[sequence.Row](&queryable.Sort{
			Groups: [][]sequence.SortKey{keys},
		}))
	}

	if d.Location != nil {
		opts = append(opts, queryable.WithLocation[sequence.Row](d.Location))
	}
	if d.Collator != nil {
		opts = append(opts, queryable.WithCollator[sequence.Row](d.Collator))
	}

	start := time.Now()
	parser := queryable.New(src.Sequence(), src.Registry(), opts...)
	conn, err := parser.Connection(ctx)
	if err != nil {
		log.Error("mcp: query %s on %s failed after %s: %v", reqID, name, time.Since(start), err)
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	payload, err := json.Marshal(conn)
	if err != nil {
		log.Error("mcp: query %s on %s: encode envelope: %v", reqID, name, err)
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}

	log.Info("mcp: query %s on %s returned %d of %d rows in %s",
		reqID, name, len(conn.Edges), conn.TotalCount, time.Since(start))
	return mcp.NewToolResultText(string(payload)), nil
}

// HandleSources lists the registered sources with their row counts.
func (d *ToolDeps) HandleSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied(ctx) {
		return mcp.NewToolResultError("unauthorized: missing or invalid bearer token"), nil
	}

	var sb strings.Builder
	sb.WriteString("Sources:\n")
	for _, name := range d.Sources.Names() {
		src, _ := d.Sources.Get(name)
		n, err := src.Sequence().Count(ctx)
		if err != nil {
			sb.WriteString(fmt.Sprintf("- %s (count unavailable: %v)\n", name, err))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s (%d rows)\n", name, n))
	}
	if d.Sources.Len() == 0 {
		sb.WriteString("(none registered)\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleDescribe lists a source's fields with kind and nullability.
func (d *ToolDeps) HandleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied(ctx) {
		return mcp.NewToolResultError("unauthorized: missing or invalid bearer token"), nil
	}

	name := request.GetString("source", "")
	if name == "" {
		return mcp.NewToolResultError("source parameter is required"), nil
	}
	src, ok := d.Sources.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source: %s", name)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source: %s\n\n", name))
	sb.WriteString("field\tkind\tnullable\n")
	for _, col := range src.Columns() {
		sb.WriteString(fmt.Sprintf("%s\t%s\t%t\n", col.Name, col.Kind, col.Nullable))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

type sortEntry struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// parseSortKeys decodes the sort parameter, a JSON array of
// {field, direction} entries. Arrays keep the caller's key order,
// which a JSON object would not.
func parseSortKeys(raw string) ([]sequence.SortKey, error) {
	var entries []sortEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("sort is not a JSON array of {field, direction}: %v", err)
	}

	keys := make([]sequence.SortKey, 0, len(entries))
	for i, e := range entries {
		if e.Field == "" {
			return nil, fmt.Errorf("sort entry %d has no field", i)
		}
		switch strings.ToLower(e.Direction) {
		case "", "asc", "ascending":
			keys = append(keys, sequence.Asc(e.Field))
		case "desc", "descending":
			keys = append(keys, sequence.Desc(e.Field))
		default:
			return nil, fmt.Errorf("sort entry %d has unknown direction %q", i, e.Direction)
		}
	}
	return keys, nil
}
