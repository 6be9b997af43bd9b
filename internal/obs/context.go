package obs

import "context"

type ctxKey int

const (
	routeKey ctxKey = iota
	deviceKey
)

// WithRoute stores the matched router pattern on the context.
func WithRoute(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routeKey, pattern)
}

// Route returns the matched route pattern, or empty when none was recorded.
func Route(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routeKey).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID records the POS device identifier so request logs and spans can
// be correlated back to the terminal that made the call.
func WithDeviceID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, deviceKey, id)
}

// DeviceID returns the POS device identifier, or empty when the client did not
// identify itself.
func DeviceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(deviceKey).(string); ok {
		return v
	}
	return ""
}
