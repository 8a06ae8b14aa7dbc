package source

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedBackend wraps each call in an OpenTelemetry span.
type tracedBackend struct {
	next   Backend
	tracer trace.Tracer
}

// TracingMiddleware records a "source.generate" span per call using the
// global tracer provider.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer("quorum-source")
	return func(next Backend) Backend {
		return &tracedBackend{next: next, tracer: tracer}
	}
}

func (t *tracedBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	ctx, span := t.tracer.Start(ctx, "source.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", t.next.Provider()),
			attribute.String("llm.model", t.next.Model()),
			attribute.Int("llm.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	text, usage, err := t.next.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return text, usage, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", usage.InputTokens),
		attribute.Int("llm.tokens.output", usage.OutputTokens),
	)
	return text, usage, nil
}

func (t *tracedBackend) Provider() string { return t.next.Provider() }

func (t *tracedBackend) Model() string { return t.next.Model() }
