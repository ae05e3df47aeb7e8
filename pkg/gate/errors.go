package gate

import (
	"fmt"
	"strings"
)

// InvalidUpdate is a policy violation the pusher can fix. It rejects
// exactly the offending reference; other references in the same push are
// evaluated on their own merits.
type InvalidUpdate struct {
	RefName string
	Lines   []string
}

// Error implements error.
func (e *InvalidUpdate) Error() string {
	return strings.Join(e.Lines, "\n")
}

func invalidf(ref string, lines ...string) *InvalidUpdate {
	return &InvalidUpdate{RefName: ref, Lines: lines}
}

// PushError is a push-wide safety violation. It rejects the entire push,
// independent of the validity of individual references.
type PushError struct {
	Lines []string
}

// Error implements error.
func (e *PushError) Error() string {
	return strings.Join(e.Lines, "\n")
}

// ConfigError indicates a configuration or environment defect that the
// pusher cannot fix. The diagnostic tells them to contact an
// administrator rather than change their push.
type ConfigError struct {
	Msg string
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg + "\nPlease contact your repository administrator."
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error { return e.Err }

// Defect is an internal consistency failure, i.e. a bug in the gate
// itself rather than in the push being validated. Defects are raised as
// panics and are deliberately never recovered: they must terminate the
// process loudly instead of masquerading as user-facing rejections.
type Defect struct {
	Msg string
}

// Error implements error.
func (e *Defect) Error() string {
	return "internal defect: " + e.Msg
}

func defectf(format string, args ...interface{}) {
	panic(&Defect{Msg: fmt.Sprintf(format, args...)})
}
