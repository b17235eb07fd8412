package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVRenderer writes a header line and one line per record.
type CSVRenderer struct{}

func (CSVRenderer) ID() string          { return "csv" }
func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Extension() string   { return "csv" }

func (CSVRenderer) Render(w io.Writer, data Data) error {
	out := csv.NewWriter(w)
	if err := out.Write(data.Headers()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := out.WriteAll(data.TextRows()); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
