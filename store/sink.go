package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// Output formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Columns is the column order shared by the tabular sinks and the loader.
var Columns = []string{
	"title", "rating", "reviews", "category", "address", "website", "phone",
	"link", "city", "country", "search_query", "source",
}

// Sink receives the full accumulated dataset. Every call replaces what a
// previous call wrote; it is never an append.
type Sink interface {
	WriteAll(records []types.PlaceRecord) error
}

// NewSink returns the file sink for format writing to path.
func NewSink(format, path string) (Sink, error) {
	if path == "" {
		return nil, scrapeerrors.NewConfiguration("output path is empty", nil)
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVSink(path), nil
	case FormatJSON:
		return NewJSONSink(path), nil
	case FormatXLSX:
		return NewXLSXSink(path), nil
	default:
		return nil, scrapeerrors.NewConfiguration(fmt.Sprintf("unknown output format %q", format), nil)
	}
}

// MultiSink writes the dataset to every sink and joins their errors.
type MultiSink []Sink

// WriteAll writes records to each sink in order.
func (m MultiSink) WriteAll(records []types.PlaceRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.WriteAll(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeAtomic writes through a temp file in the target directory and renames
// it over path, so readers never see a partial dataset.
func writeAtomic(sinkName, path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return scrapeerrors.NewSink(sinkName, "failed to create output directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return scrapeerrors.NewSink(sinkName, "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return scrapeerrors.NewSink(sinkName, "failed to write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return scrapeerrors.NewSink(sinkName, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return scrapeerrors.NewSink(sinkName, "failed to set permissions", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return scrapeerrors.NewSink(sinkName, "failed to replace "+path, err)
	}
	return nil
}

// recordRow renders a record in Columns order.
func recordRow(r types.PlaceRecord) []string {
	var rating, reviews string
	if r.Rating != nil {
		rating = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
	}
	if r.ReviewCount != nil {
		reviews = strconv.Itoa(*r.ReviewCount)
	}
	return []string{
		r.Title, rating, reviews, r.Category, r.Address, r.Website, r.Phone,
		r.Link, r.City, r.Country, r.SearchQuery, r.Source,
	}
}
