package bserve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracedClientPropagates(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	var traceparent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewHTTPClient(NewHTTPTransport(tp, NewPropagator()))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	parent.End()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, traceparent, parent.SpanContext().TraceID().String())

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "outbound GET "+strings.TrimPrefix(ts.URL, "http://"), spans[0].Name())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestRuntimeNewRequest(t *testing.T) {
	rt := NewRuntime(testEnv{}, nil, NewHTTPTransport(sdktrace.NewTracerProvider(), NewPropagator()))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path + " " + r.UserAgent()))
	}))
	defer ts.Close()

	var first, second string
	require.NoError(t, rt.NewRequest().BaseURL(ts.URL).Path("/first").ToString(&first).Fetch(context.Background()))
	require.NoError(t, rt.NewRequest().BaseURL(ts.URL).Path("/second").ToString(&second).Fetch(context.Background()))

	assert.Equal(t, "/first test", first)
	assert.Equal(t, "/second test", second)
}
