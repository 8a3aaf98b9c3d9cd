package cob

import "fmt"

// MissingError reports that an operation referenced a causal dependency
// (another entry) that has not yet been observed. The folding engine
// retries operations that fail this way after absorbing more of the log;
// it only escalates to a caller once a full sweep makes no further
// progress.
type MissingError struct {
	Entry EntryId
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("causal dependency %s missing", e.Entry)
}

// NotFoundError reports that no object of the given type exists under the
// given id.
type NotFoundError struct {
	TypeName string
	Object   ObjectId
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: object not found: %s", e.TypeName, e.Object)
}

// SignatureError reports that an entry's signature did not verify against
// its claimed author. Per the fold contract such entries are dropped
// rather than surfaced, but store-level callers that touch raw entries
// directly (e.g. a fsck-style cobctl command) need to be able to report
// it.
type SignatureError struct {
	Entry EntryId
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("entry %s: signature verification failed", e.Entry)
}

// IoError wraps a durable-storage failure so callers can distinguish it
// from the semantic errors above with errors.As, while still seeing the
// underlying cause via errors.Unwrap.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("store i/o: %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ParseError reports malformed input, used by the scenario-file parser
// (see the scenario package) and by the patch and issue action decoders
// when an entry's payload is not valid JSON.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s", e.Reason)
}
