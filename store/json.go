package store

import (
	"encoding/json"
	"io"

	"maps-scraper/internal/types"
)

// JSONSink writes the dataset as an indented JSON array.
type JSONSink struct {
	path string
}

// NewJSONSink creates a JSON sink for path
func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

// WriteAll replaces the file with records.
func (s *JSONSink) WriteAll(records []types.PlaceRecord) error {
	if records == nil {
		records = []types.PlaceRecord{}
	}
	return writeAtomic("json", s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(records)
	})
}
