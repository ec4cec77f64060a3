package bcycle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestFutureResumesPipeline(t *testing.T) {
	app, _ := newTestApp(t)

	var order []string
	app.Before("*", recordTo(&order, "before", nil))
	app.Get("/later", func(c *bcycle.Context) error {
		order = append(order, "get")
		f := bcycle.NewFuture()
		time.AfterFunc(time.Millisecond, func() { f.Resolve("resolved later") })
		return c.Future(f)
	})
	app.After("*", func(c *bcycle.Context) error {
		order = append(order, "after")
		c.Header("X-After", "ran")
		return nil
	})

	rec := serve(app, http.MethodGet, "/later")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resolved later", rec.Body.String())
	assert.Equal(t, "ran", rec.Header().Get("X-After"))
	assert.Equal(t, []string{"before@BEFORE", "get", "after"}, order)
}

func TestFutureAlreadyResolved(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/now", func(c *bcycle.Context) error {
		return c.Future(bcycle.Resolved(map[string]int{"n": 1}))
	})

	rec := serve(app, http.MethodGet, "/now")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestFutureInBefore(t *testing.T) {
	app, _ := newTestApp(t)
	app.Before("*", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return "user-1", nil
		}, bcycle.WithCallback(func(c *bcycle.Context, v any) error {
			c.Set("user", v)
			return nil
		}))
	})
	app.Get("/me", func(c *bcycle.Context) error {
		v, _ := c.Get("user")
		c.String("hello " + v.(string))
		return nil
	})

	rec := serve(app, http.MethodGet, "/me")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello user-1", rec.Body.String())
}

func TestSecondFutureIsRejected(t *testing.T) {
	app, _ := newTestApp(t)

	var secondErr error
	app.Get("/double", func(c *bcycle.Context) error {
		first := bcycle.NewFuture()
		if err := c.Future(first); err != nil {
			return err
		}

		secondErr = c.Future(bcycle.NewFuture())
		assert.False(t, first.IsDone())

		go first.Resolve("first")
		return nil
	})

	rec := serve(app, http.MethodGet, "/double")
	require.ErrorIs(t, secondErr, bcycle.ErrFutureInFlight)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "first", rec.Body.String())
}

func TestAsyncCallback(t *testing.T) {
	app, _ := newTestApp(t)
	app.Post("/items", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return map[string]string{"id": "abc"}, nil
		}, bcycle.WithCallback(func(c *bcycle.Context, v any) error {
			c.Status(http.StatusCreated)
			return c.JSON(v)
		}))
	})

	rec := serve(app, http.MethodPost, "/items")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc", gjson.Get(rec.Body.String(), "id").String())
}

func TestAsyncFailure(t *testing.T) {
	app, logs := newTestApp(t)
	app.Get("/conflict", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return nil, bcycle.Conflict("already exists")
		})
	})
	app.Get("/panic", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			panic("async panic")
		})
	})
	app.Get("/callback", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return 1, nil
		}, bcycle.WithCallback(func(c *bcycle.Context, v any) error {
			return errors.New("callback failed")
		}))
	})

	rec := serve(app, http.MethodGet, "/conflict")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already exists", rec.Body.String())

	rec = serve(app, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", rec.Body.String())

	rec = serve(app, http.MethodGet, "/callback")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int64(2), logs.NumLogUncaughtError)
}

func TestAsyncTimeout(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *bcycle.Config) { cfg.AsyncTimeout = 10 * time.Millisecond })

	late := bcycle.NewFuture()
	lateResolved := make(chan bool, 1)
	app.Get("/slow", func(c *bcycle.Context) error {
		time.AfterFunc(50*time.Millisecond, func() { lateResolved <- late.Resolve("too late") })
		return c.Future(late)
	})

	var afterRan atomic.Bool
	app.After("*", func(c *bcycle.Context) error {
		afterRan.Store(true)
		return nil
	})

	rec := serve(app, http.MethodGet, "/slow")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Request timed out", rec.Body.String())

	assert.False(t, <-lateResolved)
	_, err := late.Result()
	require.ErrorIs(t, err, bcycle.ErrFutureCancelled)

	assert.Equal(t, "Request timed out", rec.Body.String())
	assert.False(t, afterRan.Load())
}

func TestAsyncTimeoutCancelsWork(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *bcycle.Config) { cfg.AsyncTimeout = 10 * time.Millisecond })

	cancelled := make(chan struct{})
	app.Get("/work", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		})
	})

	rec := serve(app, http.MethodGet, "/work")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Request timed out", rec.Body.String())

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("async work was not cancelled")
	}
}

func TestTimeoutErrorHandler(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *bcycle.Config) { cfg.AsyncTimeout = 5 * time.Millisecond })
	app.Get("/slow", func(c *bcycle.Context) error { return c.Future(bcycle.NewFuture()) })
	app.Error(http.StatusInternalServerError, func(c *bcycle.Context) error {
		c.Header("X-Error-Handler", string(c.HandlerType()))
		return nil
	})

	rec := serve(app, http.MethodGet, "/slow")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ERROR", rec.Header().Get("X-Error-Handler"))
}

// countingWriter counts the status lines sent for one response.
type countingWriter struct {
	*httptest.ResponseRecorder
	headers atomic.Int64
}

func (w *countingWriter) WriteHeader(code int) {
	w.headers.Add(1)
	w.ResponseRecorder.WriteHeader(code)
}

func TestCompletionRacingTimeout(t *testing.T) {
	var finished atomic.Int64
	cfg := bcycle.DefaultConfig()
	cfg.AsyncTimeout = 2 * time.Millisecond

	app := bcycle.New(bcycle.WithConfig(cfg), bcycle.WithLogger(bcycle.NewTestLogger(t)),
		bcycle.WithRequestLogger(func(c *bcycle.Context, _ time.Duration) { finished.Add(1) }))
	app.Get("/race", func(c *bcycle.Context) error {
		f := bcycle.NewFuture()
		time.AfterFunc(2*time.Millisecond, func() { f.Resolve("done") })
		return c.Future(f)
	})

	const runs = 200
	for i := 0; i < runs; i++ {
		w := &countingWriter{ResponseRecorder: httptest.NewRecorder()}
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/race", nil))

		require.Equal(t, int64(1), w.headers.Load())
		switch w.Code {
		case http.StatusOK:
			require.Equal(t, "done", w.Body.String())
		case http.StatusInternalServerError:
			require.Equal(t, "Request timed out", w.Body.String())
		default:
			t.Fatalf("unexpected status %d", w.Code)
		}
	}

	assert.Equal(t, int64(runs), finished.Load())
}

func TestClientAbortWhileSuspended(t *testing.T) {
	app, logs := newTestApp(t)

	pending := bcycle.NewFuture()
	app.Get("/hang", func(c *bcycle.Context) error { return c.Future(pending) })

	ctx, cancel := context.WithCancel(context.Background())
	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hang", nil).WithContext(ctx)
	time.AfterFunc(5*time.Millisecond, cancel)

	app.ServeHTTP(rec, req)

	_, err := pending.Result()
	require.ErrorIs(t, err, bcycle.ErrFutureCancelled)
	assert.Equal(t, int64(1), atomic.LoadInt64(&logs.NumLogClientAbort))
}

func TestResultReplacesFuture(t *testing.T) {
	app, _ := newTestApp(t)

	replaced := bcycle.NewFuture()
	app.Get("/", func(c *bcycle.Context) error {
		if err := c.Future(replaced); err != nil {
			return err
		}
		c.String("sync after all")
		return nil
	})

	rec := serve(app, http.MethodGet, "/")
	assert.Equal(t, "sync after all", rec.Body.String())

	_, err := replaced.Result()
	require.ErrorIs(t, err, bcycle.ErrFutureCancelled)
}

func TestTimeoutWhileCallbackRuns(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *bcycle.Config) { cfg.AsyncTimeout = 10 * time.Millisecond })

	app.Get("/busy", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return "quick", nil
		}, bcycle.WithCallback(func(c *bcycle.Context, v any) error {
			time.Sleep(50 * time.Millisecond)
			c.String(v.(string))
			return nil
		}))
	})

	var afterRan atomic.Bool
	app.After("*", func(c *bcycle.Context) error {
		afterRan.Store(true)
		return nil
	})

	rec := serve(app, http.MethodGet, "/busy")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Request timed out", rec.Body.String())
	assert.False(t, afterRan.Load())
}

func TestFutureAfterTimeoutIsRejected(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *bcycle.Config) { cfg.AsyncTimeout = 5 * time.Millisecond })
	app.Get("/slow", func(c *bcycle.Context) error { return c.Future(bcycle.NewFuture()) })

	var lateErr error
	app.Error(http.StatusInternalServerError, func(c *bcycle.Context) error {
		lateErr = c.Future(bcycle.Resolved("replacement"))
		return nil
	})

	rec := serve(app, http.MethodGet, "/slow")
	require.ErrorIs(t, lateErr, bcycle.ErrRequestEnded)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Request timed out", rec.Body.String())
}
