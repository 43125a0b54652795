package reconcile

import "fmt"

// RecordError is a per-record failure. The record is skipped and the run
// continues.
type RecordError struct {
	ExternalID string
	Name       string
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %q (%s): %v", e.ExternalID, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// FatalError aborts the reconcile. Entries upserted before it stay written.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("reconcile %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
