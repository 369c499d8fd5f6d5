package siisej

import (
	"context"
	"errors"
	"tribunal-tracker/lib/records"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Existence is the verdict of an existence probe. The search page is
// rendered by javascript in places, so "could not tell" is a real
// outcome and callers surface it differently from a hard not-found.
type Existence int

const (
	ExistenceUnknown Existence = iota
	Exists
	NotExists
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case NotExists:
		return "not exists"
	}
	return "unknown"
}

type ProbeResult struct {
	Existence Existence
	Records   records.RecordSet
}

// ProbeExpediente checks whether an expediente exists before it is
// registered for tracking. A connection failure is returned as an
// error; an unrecognizable page is ExistenceUnknown, not an error,
// so the caller can tell "retry later" apart from "verify your
// inputs".
func (c *Client) ProbeExpediente(ctx context.Context, distrito, juzgado, numero, ano string) (ProbeResult, error) {
	ctx, span := tracer.Start(ctx, "ProbeExpediente")
	defer span.End()

	rs, err := c.FetchExpediente(ctx, distrito, juzgado, numero, ano)
	if errors.Is(err, ErrExpedienteNotFound) {
		span.SetAttributes(attribute.String("existence", NotExists.String()))
		return ProbeResult{Existence: NotExists}, nil
	}
	if err != nil {
		// an unrecognizable page (no table, no error box) is an
		// ambiguous verdict, a transport error is a real failure
		if errors.Is(err, errNoTable) {
			span.SetAttributes(attribute.String("existence", ExistenceUnknown.String()))
			return ProbeResult{Existence: ExistenceUnknown}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ProbeResult{}, err
	}

	span.SetAttributes(
		attribute.String("existence", Exists.String()),
		attribute.Int("rows", len(rs)),
	)
	return ProbeResult{Existence: Exists, Records: rs}, nil
}
