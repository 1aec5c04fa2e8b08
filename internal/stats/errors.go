package stats

import "fmt"

// Storage operations reported through a DiagnosticSink.
const (
	OpLoad = "load"
	OpSave = "save"
)

// StorageError describes a persistence failure that the store absorbed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("stats %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DiagnosticSink receives storage failures. Tracking operations never return
// them, so this is the only place they surface besides the log.
type DiagnosticSink interface {
	StorageFailed(err *StorageError)
}

// SinkFunc adapts a function to DiagnosticSink.
type SinkFunc func(err *StorageError)

// StorageFailed calls f(err).
func (f SinkFunc) StorageFailed(err *StorageError) {
	f(err)
}
