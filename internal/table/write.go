package table

import (
	"encoding/csv"
	"io"

	"go.uber.org/zap"

	"github.com/KaramelBytes/citycluster-cli/internal/utils"
)

// Write serializes t to path as CSV with a header row, column order preserved.
// The destination is replaced atomically; on failure it is left untouched and
// the returned error wraps ErrWrite and the I/O cause.
func Write(t *Table, path string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	err := utils.AtomicWrite(path, func(w io.Writer) error {
		return encodeCSV(t, w)
	})
	if err != nil {
		log.Error("write failed", zap.String("path", path), zap.Error(err))
		return &IOError{Kind: ErrWrite, Path: path, Err: err}
	}
	log.Info("table written", zap.String("path", path), zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return nil
}

func encodeCSV(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return err
	}
	rec := make([]string, len(t.cols))
	for _, r := range t.rows {
		for j, v := range r {
			rec[j] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
