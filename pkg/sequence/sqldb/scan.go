package sqldb

import (
	"database/sql"
	"fmt"

	"github.com/astro-panda/queryable/pkg/sequence"
)

// scanRows reads every row into the dynamic row representation.
func scanRows(rows *sql.Rows) ([]sequence.Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var out []sequence.Row
	for rows.Next() {
		values := make([]interface{}, len(names))
		targets := make([]interface{}, len(names))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(sequence.Row, len(names))
		for i, name := range names {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// normalizeValue converts driver-specific scan results to the value
// types the comparators understand. Times stay time.Time so ordering
// and coerced literals line up.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
