package bserve

import (
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NewHTTPTransport returns the outbound transport of the service. Each request gets a client
// span named after its method and host, and carries the trace context of the inbound request
// when it is sent with the request context.
func NewHTTPTransport(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ForceAttemptHTTP2 = true

	return otelhttp.NewTransport(base,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
		otelhttp.WithSpanNameFormatter(outboundSpanName),
	)
}

func outboundSpanName(_ string, r *http.Request) string {
	return "outbound " + r.Method + " " + r.URL.Host
}

// NewHTTPClient returns a client on the traced transport, for code that needs a plain
// *http.Client rather than [Runtime.NewRequest].
func NewHTTPClient(t http.RoundTripper) *http.Client {
	return &http.Client{Transport: t}
}

// newRequestBuilder starts an outbound request that identifies the service in its User-Agent.
func newRequestBuilder(t http.RoundTripper, serviceName string) *requests.Builder {
	return requests.New().Transport(t).UserAgent(serviceName)
}
