// Package protocol defines the JSON request and response exchanged by the
// govel command line tool and its WebAssembly builds.
//
//	request:  { "expression": "<govel>", "data": <any>, "vars": {...}, "interpreted": false }
//	response: { "result": <any>, "vars": {...} }            on success
//	          { "error": "<message>", "code": "<code>" }     on failure
//
// Numbers without a fraction decode as int, the rest as float64, so integer
// arithmetic in expressions stays integral.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/scope"
	"github.com/sandrolain/govel/pkg/types"
)

var codec = jsoniter.Config{
	EscapeHTML:             true,
	UseNumber:              true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Request asks for one evaluation.
type Request struct {
	Expression  string         `json:"expression"`
	Data        any            `json:"data,omitempty"`
	Vars        map[string]any `json:"vars,omitempty"`
	Interpreted bool           `json:"interpreted,omitempty"`
}

// Response carries the result or the error of a Request.
type Response struct {
	Result any            `json:"result,omitempty"`
	Vars   map[string]any `json:"vars,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   string         `json:"code,omitempty"`
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Error != ""
}

// Handle evaluates req with e. Variables assigned by the expression are
// returned in Vars. Accelerated evaluations are traced under ctx.
func Handle(ctx context.Context, e *govel.Engine, req Request) Response {
	if strings.TrimSpace(req.Expression) == "" {
		return Response{Error: "missing expression", Code: string(types.ErrSyntaxError)}
	}

	vars := scope.New(req.Vars)
	var (
		result any
		err    error
	)
	if req.Interpreted {
		result, err = e.EvalInterpreted(req.Expression, req.Data, vars)
	} else {
		result, err = e.EvalContext(ctx, req.Expression, req.Data, vars)
	}
	if err != nil {
		return Failure(err)
	}

	resp := Response{Result: result}
	if snap := vars.Snapshot(); len(snap) > 0 {
		resp.Vars = snap
	}
	return resp
}

// Failure builds the response for err.
func Failure(err error) Response {
	return Response{Error: err.Error(), Code: string(types.CodeOf(err))}
}

// DecodeRequest reads one request from r.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	if err := codec.NewDecoder(r).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("invalid request JSON: %w", err)
	}
	req.Data = Normalize(req.Data)
	for k, v := range req.Vars {
		req.Vars[k] = Normalize(v)
	}
	return req, nil
}

// DecodeResponse reads one response from r.
func DecodeResponse(r io.Reader) (Response, error) {
	var resp Response
	if err := codec.NewDecoder(r).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("invalid response JSON: %w", err)
	}
	resp.Result = Normalize(resp.Result)
	for k, v := range resp.Vars {
		resp.Vars[k] = Normalize(v)
	}
	return resp, nil
}

// Encode writes v as one line of JSON.
func Encode(w io.Writer, v any) error {
	return codec.NewEncoder(w).Encode(v)
}

// Unmarshal decodes a JSON document into plain values.
func Unmarshal(data []byte) (any, error) {
	var v any
	if err := codec.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Normalize replaces json.Number values in v with int or float64, walking
// nested maps and slices in place.
func Normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			if int64(int(n)) == n {
				return int(n)
			}
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = Normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = Normalize(e)
		}
		return x
	}
	return v
}
