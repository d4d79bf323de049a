package recordio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Reader gives random access to an indexed record container
type Reader struct {
	rec     *os.File
	offsets map[int]int64
	keys    []int
}

// Open loads the index and opens the record file
func Open(idxPath, recPath string) (*Reader, error) {
	offsets, keys, err := readIndex(idxPath)
	if err != nil {
		return nil, err
	}

	rec, err := os.Open(recPath)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}

	return &Reader{rec: rec, offsets: offsets, keys: keys}, nil
}

func readIndex(path string) (map[int]int64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open index file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	offsets := make(map[int]int64)
	var keys []int

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("index line %d: want key and offset, got %q", line, text)
		}
		key, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("index line %d: key: %w", line, err)
		}
		off, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("index line %d: offset: %w", line, err)
		}
		if _, dup := offsets[key]; !dup {
			keys = append(keys, key)
		}
		offsets[key] = off
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read index file: %w", err)
	}

	sort.Ints(keys)
	return offsets, keys, nil
}

// Keys returns the indexed keys in ascending order
func (r *Reader) Keys() []int {
	return r.keys
}

// Len returns the number of indexed records
func (r *Reader) Len() int {
	return len(r.keys)
}

// ReadIdx returns the raw record body stored under key
func (r *Reader) ReadIdx(key int) ([]byte, error) {
	off, ok := r.offsets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}

	var head [8]byte
	if _, err := r.rec.ReadAt(head[:], off); err != nil {
		return nil, fmt.Errorf("read record %d: %w", key, err)
	}
	if binary.LittleEndian.Uint32(head[0:]) != Magic {
		return nil, fmt.Errorf("record %d: %w", key, ErrBadMagic)
	}
	cflag, n := decodeLength(binary.LittleEndian.Uint32(head[4:]))
	if cflag != 0 {
		return nil, fmt.Errorf("record %d: %w", key, ErrSplitRecord)
	}

	body := make([]byte, n)
	if _, err := r.rec.ReadAt(body, off+int64(len(head))); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read record %d: %w", key, err)
	}
	return body, nil
}

// Read returns the unpacked header and payload stored under key
func (r *Reader) Read(key int) (Header, []byte, error) {
	body, err := r.ReadIdx(key)
	if err != nil {
		return Header{}, nil, err
	}
	h, payload, err := Unpack(body)
	if err != nil {
		return Header{}, nil, fmt.Errorf("record %d: %w", key, err)
	}
	return h, payload, nil
}

// Close closes the record file
func (r *Reader) Close() error {
	return r.rec.Close()
}
