// Package diag reads back the console's own JSON log for the diagnostics view.
package diag

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"
)

// Record is one decoded log line. Lines that are not JSON keep Raw only.
type Record struct {
	Time  time.Time
	Level slog.Level
	Msg   string
	Attrs map[string]any
	Raw   string
}

// Component returns the "component" attribute, if any.
func (r Record) Component() string {
	s, _ := r.Attrs["component"].(string)
	return s
}

// AttrKeys returns attribute keys in sorted order.
func (r Record) AttrKeys() []string {
	return slices.Sorted(maps.Keys(r.Attrs))
}

// Tail returns the last maxRecords records of the log at path, oldest first.
// maxRecords <= 0 returns every record. A missing file yields no records.
func Tail(path string, maxRecords int) ([]Record, error) {
	lines, err := readLines(path, maxRecords)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, Parse(line))
	}
	return records, nil
}

// Filter keeps records at or above min.
func Filter(records []Record, min slog.Level) []Record {
	out := records[:0:0]
	for _, r := range records {
		if r.Level >= min {
			out = append(out, r)
		}
	}
	return out
}

// Parse decodes one line written by slog.JSONHandler.
func Parse(line string) Record {
	rec := Record{Raw: line, Level: slog.LevelInfo}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		rec.Msg = line
		return rec
	}
	if v, ok := fields[slog.TimeKey].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.Time = ts
		}
	}
	if v, ok := fields[slog.LevelKey].(string); ok {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			rec.Level = lvl
		}
	}
	rec.Msg, _ = fields[slog.MessageKey].(string)
	delete(fields, slog.TimeKey)
	delete(fields, slog.LevelKey)
	delete(fields, slog.MessageKey)
	if len(fields) > 0 {
		rec.Attrs = fields
	}
	return rec
}

func readLines(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
