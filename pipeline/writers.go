package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVWriter writes a table as CSV with a header row. The file is created on
// the first Write.
type CSVWriter struct {
	filename string
	file     *os.File
	mu       sync.Mutex
}

// NewCSVWriter prepares a CSV writer for filename.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &CSVWriter{filename: filename}, nil
}

// Write creates the file and writes the header and every row. Null cells are
// written empty.
func (cw *CSVWriter) Write(table *Table) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.file != nil {
		return fmt.Errorf("csv file %s already written", cw.filename)
	}
	f, err := os.Create(cw.filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	cw.file = f

	writer := csv.NewWriter(f)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, column := range table.Columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close closes the file handle, if any.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.file == nil {
		return nil
	}
	err := cw.file.Close()
	cw.file = nil
	return err
}

// Validate ensures the file exists and has content.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.filename)
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// RunIDKey is the JSON key holding the run ID.
const RunIDKey = "run_id"

// JSONWriter writes one JSON object per row. Null cells are written as null.
type JSONWriter struct {
	filename string
	file     *os.File
	mu       sync.Mutex

	// RunID, when set, is added to every object under RunIDKey.
	RunID string
}

// NewJSONWriter prepares the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &JSONWriter{filename: filename}, nil
}

// Write creates the file and appends rows in JSONL format.
func (jw *JSONWriter) Write(table *Table) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file != nil {
		return fmt.Errorf("json file %s already written", jw.filename)
	}
	f, err := os.Create(jw.filename)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	jw.file = f

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, row := range table.Rows {
		object := make(map[string]interface{}, len(table.Columns)+1)
		if jw.RunID != "" {
			object[RunIDKey] = jw.RunID
		}
		for _, column := range table.Columns {
			if value, ok := row[column]; ok {
				object[column] = value
			} else {
				object[column] = nil
			}
		}
		if err := encoder.Encode(object); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		return nil
	}
	err := jw.file.Close()
	jw.file = nil
	return err
}

// Validate ensures the JSON file exists. An empty table yields an empty file.
func (jw *JSONWriter) Validate() error {
	if _, err := os.Stat(jw.filename); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
