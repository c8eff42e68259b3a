package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/recordsync/pkg/storage"
)

// csvTable is a header-addressed CSV file. Rows are maps keyed by column
// name; missing columns read as empty strings.
type csvTable struct {
	path    string
	columns []string
}

func (t csvTable) read() ([]map[string]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s header: %w", t.path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// write replaces the file with rows and returns the modification time of
// the new file.
func (t csvTable) write(rows []map[string]string) (time.Time, error) {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return time.Time{}, fmt.Errorf("create %s: %w", filepath.Dir(t.path), err)
	}
	return storage.ReplaceFileStamped(t.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(t.columns); err != nil {
			return err
		}
		record := make([]string, len(t.columns))
		for _, row := range rows {
			for i, name := range t.columns {
				record[i] = row[name]
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}
