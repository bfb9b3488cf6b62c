package store

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// utf8BOM lets spreadsheet applications detect the encoding
const utf8BOM = "\ufeff"

// requiredColumns must be present in a dataset loaded for continuation
var requiredColumns = []string{"title", "phone", "address", "link"}

// CSVSink writes the dataset as UTF-8 CSV with a byte order mark.
type CSVSink struct {
	path string
}

// NewCSVSink creates a CSV sink for path
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// WriteAll replaces the file with a header row and one row per record.
func (s *CSVSink) WriteAll(records []types.PlaceRecord) error {
	return writeAtomic("csv", s.path, func(w io.Writer) error {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(recordRow(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// LoadCSV reads a dataset previously written by CSVSink (or any CSV with
// at least the title, phone, address and link columns).
func LoadCSV(path string) ([]types.PlaceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scrapeerrors.NewInput("failed to open prior dataset "+path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && string(bom) == utf8BOM {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, scrapeerrors.NewInput("failed to read header of "+path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, scrapeerrors.NewInput("prior dataset "+path+" has no "+col+" column", nil)
		}
	}

	var records []types.PlaceRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, scrapeerrors.NewInput("failed to read "+path+" line "+strconv.Itoa(line), err)
		}
		records = append(records, recordFromRow(row, index))
	}
	return records, nil
}

func recordFromRow(row []string, index map[string]int) types.PlaceRecord {
	get := func(col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	r := types.PlaceRecord{
		Title:       get("title"),
		Category:    get("category"),
		Address:     get("address"),
		Website:     get("website"),
		Phone:       get("phone"),
		Link:        get("link"),
		City:        get("city"),
		Country:     get("country"),
		SearchQuery: get("search_query"),
		Source:      get("source"),
	}
	if v, err := strconv.ParseFloat(get("rating"), 64); err == nil {
		r.Rating = &v
	}
	if v, err := strconv.Atoi(get("reviews")); err == nil {
		r.ReviewCount = &v
	}
	return r
}
