package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// statusRecorder captures the response status and size for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.bytes += int64(n)
	return n, err
}

func (sr *statusRecorder) Status() int         { return sr.status }
func (sr *statusRecorder) BytesWritten() int64 { return sr.bytes }

// RouteContext injects the matched chi route pattern and the POS device id
// (X-Device-ID) into the request context, where the logging, metrics and
// tracing layers pick them up.
func RouteContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoute(ctx, pattern)
			}
		}
		if device := strings.TrimSpace(r.Header.Get("X-Device-ID")); device != "" {
			ctx = WithDeviceID(ctx, device)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeOf(r *http.Request) string {
	if route := Route(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return ""
}

// HTTPObs instruments handlers with the HTTP request counters and latency
// histogram. Unmatched paths share one label so probes cannot explode
// cardinality.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware records one observation per request.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newStatusRecorder(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r)
		o.Metrics.InFlight.Dec()

		route := routeOf(r)
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(recorder.Status())
		o.Metrics.Requests.WithLabelValues(r.Method, route, status).Inc()
		o.Metrics.Latency.WithLabelValues(r.Method, route).
			Observe(float64(time.Since(start)) / float64(time.Millisecond))
	})
}

// Tracing starts one server span per request, tagged with the route and the
// POS device so a failed submit can be traced back to the terminal.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("checkout.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		if route == "" {
			route = r.URL.Path
		}
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
		recorder := newStatusRecorder(w)
		next.ServeHTTP(recorder, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", recorder.Status()),
		)
		if device := DeviceID(r.Context()); device != "" {
			span.SetAttributes(attribute.String("pos.device_id", device))
		}
		if recorder.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.Status()))
		}
		span.End()
	})
}
