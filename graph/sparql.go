package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semgraph/rdf"
)

// QueryForm is the recognized SPARQL query form.
type QueryForm string

const (
	FormSelect    QueryForm = "SELECT"
	FormAsk       QueryForm = "ASK"
	FormConstruct QueryForm = "CONSTRUCT"
)

// SparqlResult is the mapped outcome of ExecuteSelectOrAsk. Elapsed time is
// populated for failures too, via the error path's StoreError.
type SparqlResult struct {
	Form          QueryForm        `json:"query_type"`
	Variables     []string         `json:"variables,omitempty"`
	Rows          []map[string]any `json:"results,omitempty"`
	Count         int              `json:"result_count"`
	BooleanResult *bool            `json:"boolean_result,omitempty"`
	Elapsed       time.Duration    `json:"execution_time"`
}

// ExecuteSelectOrAsk dispatches a SELECT or ASK query by its form. Other
// forms (including CONSTRUCT) are rejected with a *QuerySyntaxError.
func (c *Coordinator) ExecuteSelectOrAsk(ctx context.Context, query string) (*SparqlResult, error) {
	start := time.Now()
	form, err := DetectForm(query)
	if err != nil {
		return nil, stampElapsed(err, start)
	}

	switch form {
	case FormSelect:
		result, err := c.store.Select(ctx, query)
		if err != nil {
			return nil, err
		}
		out := &SparqlResult{
			Form:      FormSelect,
			Variables: result.Variables,
			Count:     len(result.Rows),
			Elapsed:   result.Elapsed,
		}
		for _, row := range result.Rows {
			mapped := make(map[string]any, len(row))
			for name, value := range row {
				mapped[name] = value.String()
			}
			out.Rows = append(out.Rows, mapped)
		}
		return out, nil

	case FormAsk:
		result, err := c.store.Ask(ctx, query)
		if err != nil {
			return nil, err
		}
		return &SparqlResult{Form: FormAsk, BooleanResult: &result.Value, Elapsed: result.Elapsed}, nil

	default:
		return nil, stampElapsed(&QuerySyntaxError{Query: query, Err: fmt.Errorf("form %s is not a SELECT or ASK query", form)}, start)
	}
}

// stampElapsed records the time a query spent in the engine before a local
// rejection. Only *QuerySyntaxError carries the field; other errors pass
// through untouched.
func stampElapsed(err error, start time.Time) error {
	var syntaxErr *QuerySyntaxError
	if errors.As(err, &syntaxErr) {
		syntaxErr.Elapsed = time.Since(start)
	}
	return err
}

// ConstructOutput is a serialized CONSTRUCT graph.
type ConstructOutput struct {
	Data    string        `json:"data"`
	Format  rdf.Format    `json:"format"`
	Count   int           `json:"triple_count"`
	Elapsed time.Duration `json:"execution_time"`
}

// ExecuteConstruct runs a CONSTRUCT query and serializes the graph in the
// requested format. Unknown format names fall back to Turtle.
func (c *Coordinator) ExecuteConstruct(ctx context.Context, query, format string) (*ConstructOutput, error) {
	start := time.Now()
	form, err := DetectForm(query)
	if err != nil {
		return nil, stampElapsed(err, start)
	}
	if form != FormConstruct {
		return nil, stampElapsed(&QuerySyntaxError{Query: query, Err: fmt.Errorf("form %s is not a CONSTRUCT query", form)}, start)
	}

	result, err := c.store.Construct(ctx, query)
	if err != nil {
		return nil, err
	}

	target, ok := rdf.ParseFormat(format)
	if !ok {
		target = rdf.FormatTurtle
	}
	data, err := rdf.Encode(result.Triples, target)
	if err != nil {
		return nil, err
	}
	return &ConstructOutput{Data: data, Format: target, Count: len(result.Triples), Elapsed: result.Elapsed}, nil
}

// UpdateAck acknowledges a pass-through update. Atomicity is whatever the
// store provides per call; no client-side rollback is attempted.
type UpdateAck struct {
	Success bool          `json:"success"`
	Elapsed time.Duration `json:"execution_time"`
}

// ExecuteUpdate passes an update string straight to the store.
func (c *Coordinator) ExecuteUpdate(ctx context.Context, update string) (*UpdateAck, error) {
	start := time.Now()
	if strings.TrimSpace(update) == "" {
		return nil, stampElapsed(&QuerySyntaxError{Query: update, Err: fmt.Errorf("empty update")}, start)
	}
	elapsed, err := c.store.Update(ctx, update)
	if err != nil {
		return nil, err
	}
	return &UpdateAck{Success: true, Elapsed: elapsed}, nil
}

// DetectForm finds the query form keyword, skipping comments, BASE, and
// PREFIX declarations. Text with no recognizable form is a syntax error the
// engine reports without a round trip.
func DetectForm(query string) (QueryForm, error) {
	for _, line := range strings.Split(query, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		for _, token := range strings.Fields(line) {
			switch strings.ToUpper(token) {
			case "BASE", "PREFIX":
				// Prologue continues; the IRI tokens that follow are
				// skipped by the keyword switch below.
				continue
			case "SELECT":
				return FormSelect, nil
			case "ASK":
				return FormAsk, nil
			case "CONSTRUCT":
				return FormConstruct, nil
			case "DESCRIBE":
				return "", &QuerySyntaxError{Query: query, Err: fmt.Errorf("DESCRIBE is not supported")}
			default:
				if strings.HasPrefix(token, "<") || strings.HasSuffix(token, ":") {
					continue
				}
				return "", &QuerySyntaxError{Query: query, Err: fmt.Errorf("unrecognized query form near %q", token)}
			}
		}
	}
	return "", &QuerySyntaxError{Query: query, Err: fmt.Errorf("empty query")}
}
