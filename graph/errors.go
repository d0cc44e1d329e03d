package graph

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed input triple or request. The engine
// rejects the whole batch before anything reaches the store.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("triple %d: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// QuerySyntaxError reports SPARQL the engine refused to dispatch. Elapsed
// covers the time spent before the rejection, so refused queries report
// timing the same way dispatched ones do.
type QuerySyntaxError struct {
	Query   string
	Elapsed time.Duration
	Err     error
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("query syntax: %v", e.Err)
}

func (e *QuerySyntaxError) Unwrap() error { return e.Err }

// PartialFailure aggregates per-item errors from a best-effort bulk
// operation. Succeeded counts the items that went through.
type PartialFailure struct {
	Succeeded int
	Failed    []ItemError
}

// ItemError ties one failure to the input index it came from.
type ItemError struct {
	Index int
	Err   error
}

func (e *PartialFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d operations failed:", len(e.Failed), e.Succeeded+len(e.Failed))
	for _, item := range e.Failed {
		fmt.Fprintf(&sb, " [%d] %v;", item.Index, item.Err)
	}
	return strings.TrimSuffix(sb.String(), ";")
}
