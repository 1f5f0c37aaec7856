// This file provides JSONL snapshot export and read-back of companies.
// Each line holds one company with its notes and sources.
package sqlite

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// ExportJSONL writes every company to path as JSONL. The file is replaced
// atomically. Returns the number of companies written.
func (b *Backend) ExportJSONL(path string) (int, error) {
	companies, err := b.companies.List()
	if err != nil {
		return 0, err
	}

	records := make([]json.RawMessage, 0, len(companies))
	for _, c := range companies {
		rec, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("encoding company %s: %w", c.ID, err)
		}
		records = append(records, rec)
	}
	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ReadJSONL reads a snapshot written by ExportJSONL. Blank and malformed
// lines are skipped.
func ReadJSONL(path string) ([]*types.Company, error) {
	records, err := readJSONL(path)
	if err != nil {
		return nil, err
	}

	companies := make([]*types.Company, 0, len(records))
	for _, rec := range records {
		var c types.Company
		if err := json.Unmarshal(rec, &c); err != nil {
			continue
		}
		companies = append(companies, &c)
	}
	return companies, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
