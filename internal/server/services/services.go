// Package services contains server-side business logic. Services take
// validated drafts and explicit owner ids and translate repository errors
// into the sentinels from internal/common.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
)

const tracerName = "github.com/dmitrijs2005/taskkeeper/internal/server/services"

func startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// endSpan records err on span unless it is an expected domain outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && errors.Is(err, common.ErrorInternal) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// internal logs err and returns the generic internal sentinel. The original
// error text never leaves the service.
func internal(ctx context.Context, log logging.Logger, msg string, err error, args ...any) error {
	log.Error(ctx, msg, append(args, "error", err)...)
	return common.ErrorInternal
}
