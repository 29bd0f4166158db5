package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"unifimon/internal/model"
)

// WriteCSV writes one row per published entry with a fixed column order.
func WriteCSV(w io.Writer, s model.Snapshot) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"updated_at",
		"id",
		"unit",
		"value",
		"description",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	updated := ""
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	for _, e := range Entries(s) {
		record := []string{
			updated,
			e.ID,
			e.Unit,
			FormatValue(e.Value),
			e.Description,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// FormatValue renders an entry value for text output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case string:
		return val
	default:
		return fmt.Sprint(v)
	}
}
