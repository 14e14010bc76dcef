package badgerdb

import (
	"fmt"
	"math"
)

const (
	prefixTable = "table:"
	prefixRow   = "row:"
)

func tableKey(table string) []byte {
	return []byte(prefixTable + table)
}

// rowKey encodes a row's storage key as row:{table}:{key}.
func rowKey(table, key string) []byte {
	return []byte(prefixRow + table + ":" + key)
}

func rowPrefix(table string) []byte {
	return []byte(prefixRow + table + ":")
}

// formatKey renders a primary key value. Integers are zero-padded so
// the store's lexicographic key order follows numeric order.
func formatKey(v interface{}) string {
	switch n := v.(type) {
	case int:
		return fmt.Sprintf("%08d", n)
	case int64:
		return fmt.Sprintf("%08d", n)
	case float64:
		if n == math.Trunc(n) {
			return fmt.Sprintf("%08d", int64(n))
		}
	}
	return fmt.Sprintf("%v", v)
}
