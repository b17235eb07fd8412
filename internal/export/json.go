package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONRenderer writes records as objects keyed by column name.
type JSONRenderer struct{}

func (JSONRenderer) ID() string          { return "json" }
func (JSONRenderer) ContentType() string { return "application/json" }
func (JSONRenderer) Extension() string   { return "json" }

type jsonExport struct {
	Begin   time.Time                `json:"begin"`
	End     time.Time                `json:"end"`
	Columns []string                 `json:"columns"`
	Records []map[string]interface{} `json:"records"`
	Summary *Summary                 `json:"summary,omitempty"`
}

func (JSONRenderer) Render(w io.Writer, data Data) error {
	doc := jsonExport{Begin: data.Begin, End: data.End, Records: []map[string]interface{}{}}
	for _, col := range data.Columns {
		doc.Columns = append(doc.Columns, col.Name)
	}
	for _, row := range data.Rows() {
		record := make(map[string]interface{}, len(row))
		for i, v := range row {
			record[data.Columns[i].Name] = v
		}
		doc.Records = append(doc.Records, record)
	}
	if data.ShowRates {
		doc.Summary = &data.Summary
	} else {
		doc.Summary = &Summary{Count: data.Summary.Count, Duration: data.Summary.Duration}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json export: %w", err)
	}
	return nil
}
