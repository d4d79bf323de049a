package recordio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Writer appends records to a .rec file and their offsets to a .idx file
type Writer struct {
	rec    *os.File
	idx    *os.File
	recBuf *bufio.Writer
	idxBuf *bufio.Writer
	pos    int64
	count  int
	closed bool
}

// Create truncates or creates both files
func Create(idxPath, recPath string) (*Writer, error) {
	rec, err := os.Create(recPath)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}
	idx, err := os.Create(idxPath)
	if err != nil {
		_ = rec.Close()
		return nil, fmt.Errorf("create index file: %w", err)
	}

	return &Writer{
		rec:    rec,
		idx:    idx,
		recBuf: bufio.NewWriter(rec),
		idxBuf: bufio.NewWriter(idx),
	}, nil
}

// WriteIdx writes one record and indexes it under key
func (w *Writer) WriteIdx(key int, record []byte) error {
	if len(record) > lengthMask {
		return ErrRecordTooLarge
	}

	if _, err := fmt.Fprintf(w.idxBuf, "%d\t%d\n", key, w.pos); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:], Magic)
	binary.LittleEndian.PutUint32(head[4:], encodeLength(0, len(record)))
	if _, err := w.recBuf.Write(head[:]); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if _, err := w.recBuf.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	pad := padding(len(record))
	if pad > 0 {
		if _, err := w.recBuf.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	w.pos += int64(len(head) + len(record) + pad)
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Close flushes and closes both files. Later calls are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(
		w.recBuf.Flush(),
		w.idxBuf.Flush(),
		w.rec.Close(),
		w.idx.Close(),
	)
}
