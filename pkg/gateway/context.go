package gateway

import "context"

// clientIDKey carries the authenticated client's ID into RPC handlers, so
// audit records can name the caller without threading a Client through every
// handler signature.
type clientIDKey struct{}

func withClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// clientIDFromContext returns the requesting client's ID, or "" for
// transports that have no per-client identity (the /rpc endpoint).
func clientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
