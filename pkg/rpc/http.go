package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type ResultHandler func(r *http.Request, path string, err *Error)

// HandlerOptions configure the HTTP transport for a Router.
type HandlerOptions[C any] struct {
	// Prefix is stripped from the URL path to obtain the procedure list.
	Prefix string
	// Context builds the per-request procedure context.
	Context func(r *http.Request) C
	// OnResult is called once per procedure with a nil err on success.
	OnResult ResultHandler
}

type resultEnvelope struct {
	Result *resultData `json:"result,omitempty"`
	Error  *Payload    `json:"error,omitempty"`
}

type resultData struct {
	Data Payload `json:"data"`
}

type errorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Code       Code   `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
}

// Handler serves GET queries, single or batched:
//
//	GET {prefix}/health?input={"json":null}
//	GET {prefix}/health,user.me?batch=1&input={"0":{"json":null},"1":{"json":null}}
func (r *Router[C]) Handler(opts HandlerOptions[C]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rawPaths := strings.TrimPrefix(strings.TrimPrefix(req.URL.Path, opts.Prefix), "/")
		batch := req.URL.Query().Get("batch") == "1"

		paths := []string{rawPaths}
		if batch {
			paths = strings.Split(rawPaths, ",")
		}

		if req.Method != http.MethodGet {
			envs := make([]resultEnvelope, len(paths))
			for i, path := range paths {
				rpcErr := NewError(CodeMethodNotSupported, "Unsupported "+req.Method+`-request to query procedure at path "`+path+`"`)
				envs[i] = errorEnvelope(path, rpcErr)
				notify(opts.OnResult, req, path, rpcErr)
			}
			writeEnvelopes(w, batch, envs, []int{http.StatusMethodNotAllowed})
			return
		}

		inputs, parseErr := parseInputs(req.URL.Query().Get("input"), batch, len(paths))

		var c C
		if opts.Context != nil {
			c = opts.Context(req)
		}

		envs := make([]resultEnvelope, len(paths))
		statuses := make([]int, len(paths))
		for i, path := range paths {
			if parseErr != nil {
				envs[i] = errorEnvelope(path, parseErr)
				statuses[i] = parseErr.Code.HTTPStatus()
				notify(opts.OnResult, req, path, parseErr)
				continue
			}
			envs[i], statuses[i] = r.invoke(req.Context(), c, path, inputs[i], opts.OnResult, req)
		}
		writeEnvelopes(w, batch, envs, statuses)
	})
}

func (r *Router[C]) invoke(ctx context.Context, c C, path string, input json.RawMessage, onResult ResultHandler, req *http.Request) (resultEnvelope, int) {
	out, err := r.Call(ctx, c, path, input)
	if err != nil {
		rpcErr := AsError(err)
		notify(onResult, req, path, rpcErr)
		return errorEnvelope(path, rpcErr), rpcErr.Code.HTTPStatus()
	}

	payload, err := Encode(out)
	if err != nil {
		rpcErr := &Error{Code: CodeInternalServerError, Message: "Unable to serialize response", Cause: err}
		notify(onResult, req, path, rpcErr)
		return errorEnvelope(path, rpcErr), rpcErr.Code.HTTPStatus()
	}
	notify(onResult, req, path, nil)
	return resultEnvelope{Result: &resultData{Data: payload}}, http.StatusOK
}

func notify(fn ResultHandler, r *http.Request, path string, err *Error) {
	if fn != nil {
		fn(r, path, err)
	}
}

// parseInputs unwraps the transformer envelope around each procedure input.
func parseInputs(raw string, batch bool, n int) ([]json.RawMessage, *Error) {
	inputs := make([]json.RawMessage, n)
	if raw == "" {
		return inputs, nil
	}

	if !batch {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, &Error{Code: CodeParseError, Message: "Unable to parse input", Cause: err}
		}
		inputs[0] = nullToNil(p.JSON)
		return inputs, nil
	}

	var byIndex map[string]Payload
	if err := json.Unmarshal([]byte(raw), &byIndex); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "Unable to parse batch input", Cause: err}
	}
	for key, p := range byIndex {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= n {
			return nil, NewError(CodeBadRequest, `Invalid batch input key "`+key+`"`)
		}
		inputs[i] = nullToNil(p.JSON)
	}
	return inputs, nil
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func errorEnvelope(path string, err *Error) resultEnvelope {
	shape := errorShape{
		Message: err.Message,
		Code:    err.Code.JSONRPC(),
		Data: errorData{
			Code:       err.Code,
			HTTPStatus: err.Code.HTTPStatus(),
			Path:       path,
		},
	}
	raw, _ := json.Marshal(shape)
	return resultEnvelope{Error: &Payload{JSON: raw}}
}

// writeEnvelopes answers with the shared status of every call, or 207 when
// the batch mixes outcomes.
func writeEnvelopes(w http.ResponseWriter, batch bool, envs []resultEnvelope, statuses []int) {
	status := statuses[0]
	for _, s := range statuses[1:] {
		if s != status {
			status = http.StatusMultiStatus
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if batch {
		_ = json.NewEncoder(w).Encode(envs)
		return
	}
	_ = json.NewEncoder(w).Encode(envs[0])
}
