package build

import "fmt"

// ErrorKind classifies why a node failed. It is stable across builds so
// callers can branch on it.
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindDependencyUnsatisfied ErrorKind = "DependencyUnsatisfied"
	KindMissingEndpointMedia  ErrorKind = "MissingEndpointMedia"
	KindFrameExtraction       ErrorKind = "FrameExtractionFailed"
	KindGenerationFailed      ErrorKind = "GenerationFailed"
	KindToolFailed            ErrorKind = "ToolFailed"
	KindIO                    ErrorKind = "IO"
)

// Error wraps a node failure with its kind and the failing node's id.
type Error struct {
	Kind   ErrorKind
	NodeID string
	Cause  error
}

func (e *Error) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s (node %s): %v", e.Kind, e.NodeID, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func fail(kind ErrorKind, nodeID string, cause error) *Error {
	return &Error{Kind: kind, NodeID: nodeID, Cause: cause}
}
