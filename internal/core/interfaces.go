// Package core defines the fundamental interfaces and types shared by the
// test execution engine.
package core

import (
	"fmt"
	"net/http"
)

// Builder materializes a request payload for an identifier. Implementations
// substitute the identifier into a JSON template. A failed substitution is
// reported as a *TemplateError.
type Builder interface {
	Produce(id string) ([]byte, error)
}

// Doer is the HTTP client capability the dispatcher sends through. It is
// injected so tests can substitute a fake transport; production code passes
// an *http.Client with a shared connection pool.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reporter receives one ExecutionResult per submitted request.
type Reporter interface {
	Report(ExecutionResult)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ExecutionResult)

func (f ReporterFunc) Report(res ExecutionResult) { f(res) }

// NullReporter discards all results.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(ExecutionResult) {}

// TemplateError indicates a payload could not be built for an identifier.
// The dispatcher treats it as a non-retryable pre-send failure.
type TemplateError struct {
	ID     string
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error for id %s: %s", e.ID, e.Reason)
}
