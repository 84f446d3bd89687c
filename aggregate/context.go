package aggregate

import "context"

type ctxKey int

const (
	metaKey ctxKey = iota
	causationIDKey
	correlationIDKey
)

// CtxWithMeta returns a context carrying meta data that will be stored
// with every event committed using it
func CtxWithMeta(ctx context.Context, meta map[string]string) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

// CtxWithCausationID returns a context carrying the id of the event that
// caused the events committed using it
func CtxWithCausationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, causationIDKey, id)
}

// CtxWithCorrelationID returns a context carrying the correlation id
// stored with every event committed using it
func CtxWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// MetaFromCtx returns meta data set with CtxWithMeta
func MetaFromCtx(ctx context.Context) map[string]string {
	meta, _ := ctx.Value(metaKey).(map[string]string)

	return meta
}

// CausationIDFromCtx returns causation id set with CtxWithCausationID
func CausationIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(causationIDKey).(string)

	return id
}

// CorrelationIDFromCtx returns correlation id set with CtxWithCorrelationID
func CorrelationIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)

	return id
}
