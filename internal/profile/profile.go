package profile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/KaramelBytes/citycluster-cli/internal/cluster"
	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/parser"
	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
	"github.com/KaramelBytes/citycluster-cli/internal/utils"
)

const profileFileName = "profile.json"

// ErrNotFound is returned when a profile directory holds no profile.json.
var ErrNotFound = eris.New("profile not found")

// Profile is a named pipeline configuration persisted on disk.
type Profile struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Input       string              `json:"input,omitempty"`
	Output      string              `json:"output,omitempty"`
	Load        LoadSettings        `json:"load"`
	Roles       pipeline.Roles      `json:"roles"`
	Filters     []dataprep.Filter   `json:"filters,omitempty"`
	Clustering  pipeline.Clustering `json:"clustering"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the profile.json
	rootDir string `json:"-"`
}

// LoadSettings mirrors the loader options that make sense to persist.
type LoadSettings struct {
	Delimiter  string `json:"delimiter,omitempty"`
	SheetName  string `json:"sheet_name,omitempty"`
	SheetIndex int    `json:"sheet_index,omitempty"`
	MaxRows    int    `json:"max_rows,omitempty"`
}

// NewProfile constructs an in-memory profile. Call Save() to persist.
func NewProfile(name, description, rootDir string) *Profile {
	return &Profile{
		Name:        name,
		Description: description,
		Clustering:  pipeline.Clustering{K: 3, Seed: 42},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProfile loads a profile.json from the provided directory.
func LoadProfile(dir string) (*Profile, error) {
	path := filepath.Join(dir, profileFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrNotFound, "profile: %s", path)
		}
		return nil, eris.Wrap(err, "profile: read")
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}
	p.rootDir = dir
	return &p, nil
}

// Exists reports whether dir already holds a profile.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, profileFileName))
	return err == nil
}

// RootDir returns the on-disk profile directory path.
func (p *Profile) RootDir() string { return p.rootDir }

// Save writes profile.json using atomic write.
func (p *Profile) Save() error {
	if p.rootDir == "" {
		return eris.New("profile: root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return eris.Wrap(err, "profile: ensure dir")
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, profileFileName), data)
}

// Config builds the pipeline configuration this profile describes.
func (p *Profile) Config() (pipeline.Config, error) {
	opt := parser.Options{SheetName: p.Load.SheetName, SheetIndex: p.Load.SheetIndex, MaxRows: p.Load.MaxRows}
	if p.Load.Delimiter != "" {
		d, err := ParseDelimiter(p.Load.Delimiter)
		if err != nil {
			return pipeline.Config{}, err
		}
		opt.Delimiter = d
	}
	return pipeline.Config{
		Input:      p.Input,
		Output:     p.Output,
		Load:       table.LoadOptions{Parser: opt},
		Roles:      p.Roles,
		Filters:    append([]dataprep.Filter(nil), p.Filters...),
		Clustering: p.Clustering,
	}, nil
}

// ParseDelimiter accepts a single character or "tab".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", "\\t", "\t":
		return '\t', nil
	case ",", ";", "|":
		return rune(s[0]), nil
	}
	return 0, eris.Errorf("profile: unsupported delimiter %q (use ',' ';' '|' or 'tab')", s)
}

// Set updates one field by key, as used by `profile set`.
func (p *Profile) Set(key, val string) error {
	switch key {
	case "description":
		p.Description = val
	case "input":
		p.Input = val
	case "output":
		p.Output = val
	case "encode":
		p.Roles.Encode = val
	case "encoded_column":
		p.Roles.EncodedColumn = val
	case "cluster_column":
		p.Roles.ClusterColumn = val
	case "features":
		p.Roles.Features = splitList(val)
	case "categorical":
		p.Roles.Categorical = splitList(val)
	case "numeric":
		p.Roles.Numeric = splitList(val)
	case "filters":
		var filters []dataprep.Filter
		for _, s := range splitList(val) {
			f, err := dataprep.ParseFilter(s)
			if err != nil {
				return err
			}
			filters = append(filters, f)
		}
		p.Filters = filters
	case "k", "max_iter", "sheet_index", "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return eris.Errorf("profile: invalid int for %s: %q", key, val)
		}
		switch key {
		case "k":
			if i < 1 {
				return eris.Errorf("profile: k must be at least 1")
			}
			p.Clustering.K = i
		case "max_iter":
			p.Clustering.MaxIter = i
		case "sheet_index":
			p.Load.SheetIndex = i
		case "max_rows":
			p.Load.MaxRows = i
		}
	case "seed":
		s, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return eris.Errorf("profile: invalid int for seed: %q", val)
		}
		p.Clustering.Seed = s
	case "init":
		if val != cluster.InitKMeansPP && val != cluster.InitRandom {
			return eris.Errorf("profile: invalid init %q (use %s or %s)", val, cluster.InitKMeansPP, cluster.InitRandom)
		}
		p.Clustering.Init = val
	case "delimiter":
		if _, err := ParseDelimiter(val); err != nil {
			return err
		}
		p.Load.Delimiter = val
	case "sheet_name":
		p.Load.SheetName = val
	default:
		return eris.Errorf("profile: unknown key: %s", key)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
