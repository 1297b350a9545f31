package filter

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyExpression = errors.New("empty filter expression")
	ErrNotBool         = errors.New("filter result is not a bool")
)

// Stage tells where a filter failed.
type Stage string

const (
	StageCompile  Stage = "compile"
	StageEvaluate Stage = "evaluate"
)

// Error wraps a failure to compile a filter or to run it against one torrent.
// Torrent is only set for StageEvaluate.
type Error struct {
	Stage      Stage
	Expression string
	Torrent    string
	Err        error
}

func (e *Error) Error() string {
	if e.Stage == StageEvaluate {
		return fmt.Sprintf("filter %q failed on torrent %q: %v", e.Expression, e.Torrent, e.Err)
	}
	return fmt.Sprintf("filter %q does not compile: %v", e.Expression, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
