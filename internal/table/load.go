package table

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KaramelBytes/citycluster-cli/internal/parser"
)

// LoadOptions controls how a file becomes a Table.
type LoadOptions struct {
	Parser parser.Options
	// MissingTokens are cell texts read as absent; nil uses DefaultMissingTokens.
	MissingTokens []string
	Number        NumberFormat
}

// Load reads a CSV/TSV/XLSX file into a Table. It never returns a partial table:
// a missing path fails with ErrFileNotFound and unreadable content with ErrParse.
func Load(path string, opt LoadOptions, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		kind := ErrParse
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrFileNotFound
		}
		log.Error("load failed", zap.Error(err))
		return nil, &IOError{Kind: kind, Path: path, Err: err}
	}
	if info.IsDir() {
		err := &IOError{Kind: ErrParse, Path: path, Err: errors.New("path is a directory")}
		log.Error("load failed", zap.Error(err))
		return nil, err
	}

	rec, err := parser.ParseFile(path, opt.Parser)
	if err != nil {
		log.Error("load failed", zap.Error(err))
		return nil, &IOError{Kind: ErrParse, Path: path, Err: err}
	}
	t, err := fromRecords(rec, opt)
	if err != nil {
		log.Error("load failed", zap.Error(err))
		return nil, &IOError{Kind: ErrParse, Path: path, Err: err}
	}
	if rec.Truncated {
		log.Warn("row limit reached, remaining rows ignored", zap.Int("max_rows", opt.Parser.MaxRows))
	}
	log.Info("dataset loaded", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return t, nil
}

func fromRecords(rec *parser.Records, opt LoadOptions) (*Table, error) {
	t, err := New(rec.Header)
	if err != nil {
		return nil, err
	}
	tokens := opt.MissingTokens
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	missing := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		missing[strings.TrimSpace(tok)] = struct{}{}
	}
	ncol := t.NumCols()
	for i, raw := range rec.Rows {
		// trailing empty cells past the header are tolerated (common spreadsheet export)
		for len(raw) > ncol && strings.TrimSpace(raw[len(raw)-1]) == "" {
			raw = raw[:len(raw)-1]
		}
		row := make([]Value, len(raw))
		for j, cell := range raw {
			row[j] = ParseValue(cell, missing, opt.Number)
		}
		if err := t.Append(row...); err != nil {
			return nil, eris.Wrapf(err, "table: data row %d", i+1)
		}
	}
	return t, nil
}
