package bserve_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/advdv/bcycle"
	"github.com/advdv/bcycle/bserve"
	"github.com/advdv/bcycle/bserve/bservetest"
	"github.com/carlmjohnson/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

// Handlers demonstrates injecting the runtime into handler constructors.
type Handlers struct {
	rt *bserve.Runtime[TestEnv]
}

func NewHandlers(rt *bserve.Runtime[TestEnv]) *Handlers {
	return &Handlers{rt: rt}
}

func (h *Handlers) GetItem(c *bcycle.Context) error {
	self, err := h.rt.Reverse("get-item", c.PathParam("id"))
	if err != nil {
		return err
	}

	bserve.Log(c).Info("getting item")
	return c.JSON(map[string]string{
		"id":       c.PathParam("id"),
		"greeting": h.rt.Env().Greeting,
		"self":     self,
	})
}

func (h *Handlers) SlowItem(c *bcycle.Context) error {
	return c.Async(func(ctx context.Context) (any, error) {
		select {
		case <-time.After(5 * time.Millisecond):
			return map[string]string{"id": "slow"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestApp(t *testing.T) {
	bservetest.SetBaseEnv(t, 18093).HealthPath("/ready")

	var middlewareRan atomic.Bool
	app := bservetest.New[TestEnv](t,
		func(a *bcycle.App, h *Handlers) {
			a.Get("/items/:id", h.GetItem, "get-item")
			a.Get("/slow", h.SlowItem)
		},
		bserve.WithFx(fx.Provide(NewHandlers)),
		bserve.WithMiddleware(func(next bcycle.Handler) bcycle.Handler {
			return bcycle.HandlerFunc(func(c *bcycle.Context) error {
				middlewareRan.Store(true)
				return next.Handle(c)
			})
		}),
	)

	app.RequireStart()
	t.Cleanup(app.RequireStop)

	ctx := context.Background()
	base := requests.URL("http://localhost:18093")

	t.Run("json endpoint", func(t *testing.T) {
		var item map[string]string
		require.NoError(t, base.Clone().Path("/items/abc").ToJSON(&item).Fetch(ctx))

		assert.Equal(t, "abc", item["id"])
		assert.Equal(t, "hello", item["greeting"])
		assert.Equal(t, "/items/abc", item["self"])
		assert.True(t, middlewareRan.Load())
	})

	t.Run("async endpoint", func(t *testing.T) {
		var item map[string]string
		require.NoError(t, base.Clone().Path("/slow").ToJSON(&item).Fetch(ctx))
		assert.Equal(t, "slow", item["id"])
	})

	t.Run("not found", func(t *testing.T) {
		err := base.Clone().Path("/missing").Fetch(ctx)
		require.Error(t, err)
		assert.True(t, requests.HasStatusErr(err, http.StatusNotFound))
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, base.Clone().Path("/ready").CheckStatus(http.StatusOK).Fetch(ctx))
	})

	t.Run("metrics", func(t *testing.T) {
		var body string
		require.NoError(t, base.Clone().Path("/metrics").ToString(&body).Fetch(ctx))
		assert.Contains(t, body, `bcycle_requests_total{method="GET",path="/items/:id",status="200"} 1`)
		assert.Contains(t, body, "go_goroutines")
	})
}

func TestAppRejectsUseInRouting(t *testing.T) {
	bservetest.SetBaseEnv(t, 18094)

	assert.Panics(t, func() {
		fx.New(bserve.FxOptions[TestEnv](func(a *bcycle.App) {
			a.Use(func(next bcycle.Handler) bcycle.Handler { return next })
		})...)
	})
}
