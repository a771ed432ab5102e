// Package checks implements the signal checkers that inspect a submitted
// project. Each checker is an ordered pipeline of evidence sources; the first
// source that reaches a verdict decides the result.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

// DefaultCallTimeout bounds every reference-service call.
const DefaultCallTimeout = 5 * time.Second

// Checker inspects one aspect of a project. Check never returns an error:
// failures to verify become a failed result.
type Checker interface {
	Kind() domain.CheckKind
	Check(ctx context.Context, p domain.Project) domain.ValidationResult
}

type Outcome int

const (
	// Inconclusive means the source found no evidence either way.
	Inconclusive Outcome = iota
	Pass
	Fail
	// Errored means the source hit an unexpected error; the check fails.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Inconclusive:
		return "inconclusive"
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Errored:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Evidence is what a single source reports.
type Evidence struct {
	Outcome Outcome
	Detail  string
	// Err is set when a reference service could not answer or, with Errored,
	// when something unexpected went wrong.
	Err error
}

func noEvidence() Evidence { return Evidence{Outcome: Inconclusive} }

func unavailable(err error) Evidence {
	if err == nil {
		err = ports.ErrServiceUnavailable
	}
	return Evidence{Outcome: Inconclusive, Err: err}
}

func passed(format string, args ...any) Evidence {
	return Evidence{Outcome: Pass, Detail: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) Evidence {
	return Evidence{Outcome: Fail, Detail: fmt.Sprintf(format, args...)}
}

func errored(err error) Evidence { return Evidence{Outcome: Errored, Err: err} }

// Source is one evidence provider in a checker's pipeline.
type Source struct {
	Name string
	Eval func(ctx context.Context) Evidence
}

type pipeline struct {
	kind     domain.CheckKind
	sources  []Source
	fallback domain.ValidationResult
	// unableDetail prefixes the details of an errored check.
	unableDetail string
	logger       *zap.Logger
}

// run evaluates sources in order. Panics and Errored evidence become a failed
// "unable to verify" result; a fallback pass reached while some service was
// unavailable is flagged inconclusive.
func (p pipeline) run(ctx context.Context) (res domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("check panicked", zap.Stringer("check", p.kind), zap.Any("panic", r))
			res = domain.ValidationResult{Passed: false, Details: p.unableDetail + ": internal error"}
		}
	}()

	var skipped []string
	for _, src := range p.sources {
		ev := src.Eval(ctx)
		switch ev.Outcome {
		case Pass:
			return domain.ValidationResult{Passed: true, Details: ev.Detail}
		case Fail:
			return domain.ValidationResult{Passed: false, Details: ev.Detail}
		case Errored:
			p.logger.Warn("check source error",
				zap.Stringer("check", p.kind), zap.String("source", src.Name), zap.Error(ev.Err))
			detail := p.unableDetail
			if ev.Err != nil {
				detail += ": " + ev.Err.Error()
			}
			return domain.ValidationResult{Passed: false, Details: detail}
		default:
			if ev.Err != nil {
				p.logger.Debug("reference source inconclusive",
					zap.Stringer("check", p.kind), zap.String("source", src.Name), zap.Error(ev.Err))
				skipped = append(skipped, src.Name)
			}
		}
	}

	res = p.fallback
	if res.Passed && len(skipped) > 0 {
		res.Inconclusive = true
		res.Details = fmt.Sprintf("%s (inconclusive: %s unavailable)", res.Details, strings.Join(skipped, ", "))
	}
	return res
}

// callWithTimeout bounds a reference call. A deadline or cancellation is
// reported as the service being unavailable.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(cctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
	}
	return v, err
}
