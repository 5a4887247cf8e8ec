// Package export serializes query results for download.
package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/bookwise/bookwise/internal/dataset"
)

// ToParquet encodes a query result as a parquet file. Every value is written
// as a string column since statements are free-form and the engine's column
// types are not preserved past materialization.
func ToParquet(result dataset.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns to export")
	}

	group := parquet.Group{}
	for _, column := range result.Columns {
		group[column] = parquet.String()
	}
	schema := parquet.NewSchema("query_result", group)

	records := make([]map[string]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]string, len(result.Columns))
		for i, column := range result.Columns {
			if i < len(row) {
				record[column] = stringify(row[i])
			}
		}
		records = append(records, record)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]string](buf, schema)
	if _, err := writer.Write(records); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
