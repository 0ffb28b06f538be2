package parser

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Options controls how raw records are read from a source file.
type Options struct {
	// Delimiter for delimited text. If 0, sniffs among ',', ';', '\t', '|'.
	Delimiter rune
	// MaxRows limits data rows read (header excluded); 0 means unlimited.
	MaxRows int
	// SheetName selects an XLSX sheet by name; overrides SheetIndex.
	SheetName string
	// SheetIndex selects an XLSX sheet by 1-based position (default first sheet).
	SheetIndex int
}

// Records is the raw string grid read from a source: one header row plus data rows.
type Records struct {
	Header []string
	Rows   [][]string
	// Truncated reports that MaxRows stopped the read early.
	Truncated bool
}

// Parser reads a tabular file format into raw records.
type Parser interface {
	CanParse(filename string) bool
	Parse(path string, opt Options) (*Records, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ParseFile selects a parser based on filename and returns the file's records.
func ParseFile(path string, opt Options) (*Records, error) {
	for _, p := range registry {
		if p.CanParse(path) {
			return p.Parse(path, opt)
		}
	}
	return nil, eris.Wrapf(ErrUnsupported, "parser: %s", filepath.Ext(path))
}

// Supported reports whether some registered parser accepts the filename.
func Supported(path string) bool {
	for _, p := range registry {
		if p.CanParse(path) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = eris.New("unsupported table format")

// normalizeHeader trims names and strips a UTF-8 byte order mark from the first cell.
func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}
