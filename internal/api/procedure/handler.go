package procedure

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/metrics"
)

// Void is the output type of procedures that return nothing; handlers
// return nil and the response body is JSON null.
type Void = *struct{}

type QueryFunc[Out any] func(ctx context.Context, pc Context) (Out, error)

type MutationFunc[In, Out any] func(ctx context.Context, pc Context, in In) (Out, error)

// Query adapts a handler without input to HTTP.
func Query[Out any](p Pipeline, path string, fn QueryFunc[Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		pc, err := p.Run(ctx, newContext(w, r, p.env.store, path))
		if err != nil {
			reject(w, r, path, err)
			return
		}

		out, err := fn(ctx, pc)
		if err != nil {
			reject(w, r, path, err)
			return
		}
		writeJSON(w, r, out)
	}
}

// Mutation adapts a handler taking a JSON body. The body is decoded and
// validated after the guards pass and before fn runs.
func Mutation[In, Out any](p Pipeline, path string, fn MutationFunc[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		pc, err := p.Run(ctx, newContext(w, r, p.env.store, path))
		if err != nil {
			reject(w, r, path, err)
			return
		}

		var in In
		if err := p.env.validator.Decode(r, &in); err != nil {
			p.record(pc, path, err)
			reject(w, r, path, err)
			return
		}

		out, err := fn(ctx, pc, in)
		p.record(pc, path, err)
		if err != nil {
			reject(w, r, path, err)
			return
		}
		writeJSON(w, r, out)
	}
}

func reject(w http.ResponseWriter, r *http.Request, path string, err error) {
	pe := problem.From(err)
	metrics.ProcedureRejections.WithLabelValues(path, string(pe.Code)).Inc()
	problem.Write(w, r, path, pe)
}

func writeJSON(w http.ResponseWriter, r *http.Request, out any) {
	payload, err := json.Marshal(out)
	if err != nil {
		problem.Write(w, r, "", problem.Internal(err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
