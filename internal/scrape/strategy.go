package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var tracer = otel.Tracer("reviewgoat/scrape")

// ErrDeclined reports that a strategy does not apply to the job at hand.
var ErrDeclined = errors.New("strategy declined")

// Strategy is one way of producing a T. Attempt returns an error, possibly
// ErrDeclined, when it has nothing to offer.
type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) (T, error)
}

// AttemptsError collects the failure of every strategy in a chain.
type AttemptsError struct {
	Names []string
	Errs  []error
}

func (e *AttemptsError) Error() string {
	parts := make([]string, len(e.Names))
	for i, name := range e.Names {
		parts[i] = fmt.Sprintf("%s: %v", name, e.Errs[i])
	}
	return "all strategies failed: " + strings.Join(parts, "; ")
}

func (e *AttemptsError) Unwrap() []error { return e.Errs }

// Tried lists the strategies that ran and failed, skipping declined ones.
func (e *AttemptsError) Tried() []string {
	var tried []string
	for i, name := range e.Names {
		if !errors.Is(e.Errs[i], ErrDeclined) {
			tried = append(tried, name)
		}
	}
	return tried
}

// FirstSuccess runs strategies in order and returns the first result along
// with the name of the strategy that produced it. An environment error or a
// cancelled context stops the chain early.
func FirstSuccess[T any](ctx context.Context, logger *slog.Logger, op string, strategies []Strategy[T]) (T, string, error) {
	var zero T
	failed := &AttemptsError{}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		attemptCtx, span := tracer.Start(ctx, op+"."+s.Name,
			trace.WithAttributes(attribute.String("strategy", s.Name)))
		result, err := s.Attempt(attemptCtx)
		if err == nil {
			span.SetStatus(codes.Ok, "")
			span.End()
			logger.Debug("strategy succeeded", "op", op, "strategy", s.Name)
			return result, s.Name, nil
		}

		if errors.Is(err, ErrDeclined) {
			span.SetAttributes(attribute.Bool("declined", true))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Debug("strategy failed", "op", op, "strategy", s.Name, "error", err)
		}
		span.End()

		var envErr *types.ExtractionEnvironmentError
		if errors.As(err, &envErr) {
			return zero, "", err
		}
		failed.Names = append(failed.Names, s.Name)
		failed.Errs = append(failed.Errs, err)
	}

	return zero, "", failed
}
