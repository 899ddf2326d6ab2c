package procedure

import (
	"context"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/audit"
	"github.com/sp-hack/server/internal/storage"
	"github.com/sp-hack/server/internal/validation"
)

// Pipeline is an ordered guard chain. The first failing guard aborts the
// call.
type Pipeline struct {
	name    string
	guards  []Guard
	audited bool
	env     *env
}

type env struct {
	store     storage.Repository
	validator *validation.Validator
	audit     *audit.Logger
}

func (p Pipeline) Name() string {
	return p.name
}

// Run folds pc through the guards.
func (p Pipeline) Run(ctx context.Context, pc Context) (Context, error) {
	for _, guard := range p.guards {
		next, err := guard(ctx, pc)
		if err != nil {
			return pc, err
		}
		pc = next
	}
	return pc, nil
}

// record writes the outcome of a mutation that got past the guards of an
// audited pipeline.
func (p Pipeline) record(pc Context, path string, err error) {
	if !p.audited || p.env.audit == nil {
		return
	}
	if err != nil {
		p.env.audit.LogFailure(path, pc.AdminID, pc.Fingerprint, pc.RequestID, string(problem.From(err).Code))
		return
	}
	p.env.audit.LogSuccess(path, pc.AdminID, pc.Fingerprint, pc.RequestID)
}

type Options struct {
	Store          storage.Repository
	Validator      *validation.Validator
	Limiter        Limiter
	Sessions       SessionReader
	Production     bool
	AllowForbidden bool
	// Audit receives admin and forbidden mutations. Nil disables auditing.
	Audit *audit.Logger
}

// Pipelines holds the predefined guard chains every route picks from.
type Pipelines struct {
	Public      Pipeline
	RateLimited Pipeline
	Admin       Pipeline
	Forbidden   Pipeline
}

func NewPipelines(opts Options) Pipelines {
	e := &env{store: opts.Store, validator: opts.Validator, audit: opts.Audit}
	if e.validator == nil {
		e.validator = validation.New()
	}

	origin := OriginGuard(opts.Production)
	rate := RateGuard(opts.Limiter)
	admin := AdminGuard(opts.Sessions, !opts.Production)
	gate := FeatureGateGuard(opts.AllowForbidden)

	return Pipelines{
		Public:      Pipeline{name: "public", guards: []Guard{origin}, env: e},
		RateLimited: Pipeline{name: "rateLimit", guards: []Guard{origin, rate}, env: e},
		Admin:       Pipeline{name: "admin", guards: []Guard{origin, rate, admin}, audited: true, env: e},
		Forbidden:   Pipeline{name: "forbidden", guards: []Guard{origin, rate, gate}, audited: true, env: e},
	}
}
