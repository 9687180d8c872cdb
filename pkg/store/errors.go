package store

import "fmt"

// UnknownEncoderError is returned when a stored record references an
// encoder prefix byte that is not in the registry -- fatal for that read.
type UnknownEncoderError struct {
	Prefix byte
	Name   string // best-effort name recovered from the persistent registry, may be empty
}

func (e *UnknownEncoderError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("store: unknown encoder prefix %d (registered name %q not loaded)", e.Prefix, e.Name)
	}
	return fmt.Sprintf("store: unknown encoder prefix %d", e.Prefix)
}

// StaleIndexEntryError describes an index entry resolving to a primary key
// that no longer exists in the collection. Index.Items logs and skips
// these; other index methods may surface them.
type StaleIndexEntryError struct {
	Index      string
	PrimaryKey string
}

func (e *StaleIndexEntryError) Error() string {
	return fmt.Sprintf("store: index %q has stale entry for primary key %q", e.Index, e.PrimaryKey)
}

// InvalidConfigurationError reports a caller-supplied configuration that
// cannot be satisfied, e.g. Batch with neither MaxRecs nor MaxBytes set.
type InvalidConfigurationError struct {
	Msg string
}

func (e *InvalidConfigurationError) Error() string {
	return "store: invalid configuration: " + e.Msg
}

// AssignmentOutOfRangeError is returned when more than 240 encoders have
// been registered.
type AssignmentOutOfRangeError struct {
	Attempted int
}

func (e *AssignmentOutOfRangeError) Error() string {
	return fmt.Sprintf("store: encoder prefix assignment out of range (attempted %d, max 240)", e.Attempted)
}
