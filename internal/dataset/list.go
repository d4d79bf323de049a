package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrEmptyList is returned when the list file holds no rows
var ErrEmptyList = errors.New("dataset: list file has no rows")

// Entry is one row of a tab-separated list file:
// index, secondary label, image path relative to the image root
type Entry struct {
	Index     int
	Secondary float64
	Path      string
}

// ReadList loads every row of a list file
func ReadList(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		e, err := parseEntry(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyList
	}
	return entries, nil
}

func parseEntry(text string) (Entry, error) {
	parts := strings.Split(text, "\t")
	if len(parts) < 3 {
		return Entry{}, fmt.Errorf("want 3 tab-separated fields, got %d", len(parts))
	}

	idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Entry{}, fmt.Errorf("index: %w", err)
	}
	secondary, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("label: %w", err)
	}

	return Entry{
		Index:     idx,
		Secondary: secondary,
		Path:      parts[len(parts)-1],
	}, nil
}

// MaxIndex returns the largest index column value
func MaxIndex(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyList
	}
	maxIdx := entries[0].Index
	for _, e := range entries[1:] {
		if e.Index > maxIdx {
			maxIdx = e.Index
		}
	}
	return maxIdx, nil
}
