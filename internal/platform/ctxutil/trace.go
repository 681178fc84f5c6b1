package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

type identityKey struct{}

// Identity carries the caller's HR-derived identity for one request: the
// job_number that owns/submits tasks and the organization_position the
// caller currently sits in (used as the approval cursor guard). Populated by
// internal/http/middleware from request headers, standing in for the
// out-of-scope JWT/session auth layer.
type Identity struct {
	JobNumber      string
	OrgPositionID  int64
	HasOrgPosition bool
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	val := ctx.Value(identityKey{})
	id, ok := val.(Identity)
	return id, ok
}
