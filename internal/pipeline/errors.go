package pipeline

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/KaramelBytes/citycluster-cli/internal/cluster"
	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/table"
)

// Stage names a pipeline step.
type Stage string

const (
	StageConfig   Stage = "config"
	StageLoad     Stage = "load"
	StageValidate Stage = "validate"
	StageClean    Stage = "clean"
	StageEncode   Stage = "encode"
	StageScale    Stage = "scale"
	StageCluster  Stage = "cluster"
	StageWrite    Stage = "write"
	StageReport   Stage = "report"
)

// ErrInvalidConfig is returned before any I/O when a Config cannot run.
var ErrInvalidConfig = eris.New("invalid pipeline config")

// StageError reports which stage aborted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Kind returns the taxonomy sentinel behind the failure, or nil if none matches.
func (e *StageError) Kind() error {
	for _, k := range []error{
		table.ErrFileNotFound,
		table.ErrParse,
		table.ErrMissingColumn,
		table.ErrNotNumeric,
		table.ErrWrite,
		dataprep.ErrUnknownCategory,
		cluster.ErrInsufficientData,
		cluster.ErrInvalidInput,
		ErrInvalidConfig,
	} {
		if errors.Is(e.Err, k) {
			return k
		}
	}
	return nil
}

// StageOf returns the failing stage of err, if it came from a pipeline run.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
