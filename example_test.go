package bcycle_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/advdv/bcycle"
)

func Example() {
	app := bcycle.New()

	app.Get("/items/:id", func(c *bcycle.Context) error {
		id := c.PathParam("id")
		if id == "0" {
			return bcycle.BadRequest("invalid id")
		}

		return c.JSON(map[string]string{
			"id":   id,
			"name": "Example Item",
		})
	}, "get-item")

	// Generate URL by route name
	url, _ := app.Reverse("get-item", "123")
	fmt.Println("URL:", url)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	app.ServeHTTP(rec, req)

	fmt.Println("Status:", rec.Code)
	fmt.Println("Body:", rec.Body.String())
	// Output:
	// URL: /items/123
	// Status: 200
	// Body: {"id":"42","name":"Example Item"}
}

func ExampleContext_Async() {
	cfg := bcycle.DefaultConfig()
	cfg.AsyncTimeout = time.Second
	app := bcycle.New(bcycle.WithConfig(cfg))

	app.Get("/report", func(c *bcycle.Context) error {
		return c.Async(func(ctx context.Context) (any, error) {
			return "report ready", nil
		})
	})
	app.After("*", func(c *bcycle.Context) error {
		c.Header("X-Generated-By", "bcycle")
		return nil
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	fmt.Println(rec.Code, rec.Body.String(), rec.Header().Get("X-Generated-By"))
	// Output:
	// 200 report ready bcycle
}

func ExampleException() {
	app := bcycle.New()

	bcycle.Exception(app, func(err *bcycle.CompletionError, c *bcycle.Context) {
		c.Status(http.StatusBadGateway).String("upstream failed")
	})

	app.Get("/", func(c *bcycle.Context) error {
		return &bcycle.CompletionError{Cause: context.DeadlineExceeded}
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	fmt.Println(rec.Code, rec.Body.String())
	// Output:
	// 502 upstream failed
}
