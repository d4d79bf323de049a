// Package dataset converts a training list file into an indexed record
// container consumed by the recognition trainer.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/recordio"
)

const (
	ListFile  = "train.lst"
	RecFile   = "train.rec"
	IndexFile = "train.idx"

	// ProgressEvery is the row interval between progress log lines
	ProgressEvery = 1000
)

// LabelColumn selects which list column becomes the record label
type LabelColumn string

const (
	LabelPrimary   LabelColumn = "primary"
	LabelSecondary LabelColumn = "secondary"
)

// ParseLabelColumn validates a column name
func ParseLabelColumn(s string) (LabelColumn, error) {
	switch LabelColumn(s) {
	case LabelPrimary, LabelSecondary:
		return LabelColumn(s), nil
	case "":
		return LabelPrimary, nil
	}
	return "", fmt.Errorf("label column must be %q or %q, got %q", LabelPrimary, LabelSecondary, s)
}

type Options struct {
	// ImageRoot is where list paths are resolved
	ImageRoot string
	// SaveDir holds train.lst and receives train.rec and train.idx
	SaveDir     string
	LabelColumn LabelColumn
	Logger      *slog.Logger
	// Progress receives a progress bar when set
	Progress io.Writer
}

// Result summarizes a finished pack
type Result struct {
	RecPath  string
	IdxPath  string
	Records  int
	MaxIndex int
}

// NumClasses is the class count encoded in the slot 0 header
func (r Result) NumClasses() int {
	return r.MaxIndex + 1
}

// Pack reads SaveDir/train.lst and writes train.rec and train.idx next to
// it. Slot 0 holds a header whose label pair is (maxIndex+1, maxIndex+1);
// row i lands at slot i+1. Any unreadable image aborts the run and leaves
// the partial output in place.
func Pack(ctx context.Context, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	column, err := ParseLabelColumn(string(opts.LabelColumn))
	if err != nil {
		return Result{}, err
	}

	entries, err := ReadList(filepath.Join(opts.SaveDir, ListFile))
	if err != nil {
		return Result{}, err
	}
	maxIdx, err := MaxIndex(entries)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RecPath:  filepath.Join(opts.SaveDir, RecFile),
		IdxPath:  filepath.Join(opts.SaveDir, IndexFile),
		MaxIndex: maxIdx,
	}

	w, err := recordio.Create(res.IdxPath, res.RecPath)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = w.Close()
	}()

	total := float32(maxIdx + 1)
	header := recordio.Header{Labels: []float32{total, total}}
	if err := w.WriteIdx(0, recordio.Pack(header, nil)); err != nil {
		return Result{}, fmt.Errorf("write header record: %w", err)
	}

	logger.Info("packing dataset",
		slog.Int("rows", len(entries)),
		slog.Int("max_index", maxIdx),
		slog.String("label_column", string(column)),
		slog.String("rec", res.RecPath),
	)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetDescription("Packing"),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowCount(),
		)
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		data, err := os.ReadFile(filepath.Join(opts.ImageRoot, e.Path))
		if err != nil {
			return Result{}, fmt.Errorf("row %d: read image: %w", i+1, err)
		}

		slot := i + 1
		h := recordio.Header{
			Label: labelFor(e, column),
			ID:    uint64(slot),
		}
		if err := w.WriteIdx(slot, recordio.Pack(h, data)); err != nil {
			return Result{}, fmt.Errorf("row %d: %w", slot, err)
		}

		if i%ProgressEvery == 0 {
			logger.Info("pack progress", slog.Int("processed", i))
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("close record files: %w", err)
	}
	res.Records = len(entries)

	logger.Info("pack completed",
		slog.Int("records", res.Records),
		slog.String("rec", res.RecPath),
		slog.String("idx", res.IdxPath),
	)

	return res, nil
}

func labelFor(e Entry, column LabelColumn) float32 {
	if column == LabelSecondary {
		return float32(e.Secondary)
	}
	return float32(e.Index)
}
