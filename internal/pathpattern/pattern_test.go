package pathpattern_test

import (
	"testing"

	"github.com/advdv/bcycle/internal/pathpattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	for _, tt := range []struct {
		pattern string
		wantErr string
	}{
		{pattern: "", wantErr: "empty pattern"},
		{pattern: "users", wantErr: "must start with '/'"},
		{pattern: "/users/{id", wantErr: "malformed segment"},
		{pattern: "/users/:", wantErr: "empty parameter name"},
		{pattern: "/a/:id/b/{id}", wantErr: "duplicate parameter name"},
		{pattern: "/"},
		{pattern: "*"},
		{pattern: "/users/:id/posts/{post}"},
	} {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := pathpattern.ParsePattern(tt.pattern)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.pattern, p.String())
		})
	}
}

func TestMatch(t *testing.T) {
	for _, tt := range []struct {
		pattern    string
		path       string
		wantOK     bool
		wantParams map[string]string
	}{
		{pattern: "/", path: "/", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/", path: "/a", wantOK: false},
		{pattern: "*", path: "/anything/at/all", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/a", path: "/a", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/a", path: "/b", wantOK: false},
		{pattern: "/a", path: "/a/b", wantOK: false},
		{pattern: "/users/:id", path: "/users/42", wantOK: true, wantParams: map[string]string{"id": "42"}},
		{pattern: "/users/{id}", path: "/users/42", wantOK: true, wantParams: map[string]string{"id": "42"}},
		{pattern: "/users/:id", path: "/users/", wantOK: false},
		{pattern: "/users/:id/posts/:post", path: "/users/1/posts/2", wantOK: true, wantParams: map[string]string{"id": "1", "post": "2"}},
		{pattern: "/files/*", path: "/files/a/b/c", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/files/*", path: "/files", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/a/*/c", path: "/a/b/c", wantOK: true, wantParams: map[string]string{}},
		{pattern: "/a/*/c", path: "/a/b/d", wantOK: false},
		{pattern: "/a/*/c", path: "/a/b/x/c", wantOK: false},
	} {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			p := pathpattern.MustParse(tt.pattern)
			params, ok := p.Match(tt.path)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	res, err := pathpattern.Build(pathpattern.MustParse("/"))
	require.NoError(t, err)
	assert.Equal(t, "/", res)

	res, err = pathpattern.Build(pathpattern.MustParse("/blog/:id/comments/{cid}"), "a b", "7")
	require.NoError(t, err)
	assert.Equal(t, "/blog/a%20b/comments/7", res)

	_, err = pathpattern.Build(pathpattern.MustParse("/blog/:id"))
	require.ErrorContains(t, err, "not enough values")

	_, err = pathpattern.Build(pathpattern.MustParse("/blog/:id"), "1", "2")
	require.ErrorContains(t, err, "too many values")

	_, err = pathpattern.Build(pathpattern.MustParse("/files/*"))
	require.ErrorContains(t, err, "cannot be built")
}

func TestMustParsePanics(t *testing.T) {
	assert.PanicsWithValue(t, "pathpattern: empty pattern", func() {
		pathpattern.MustParse("")
	})
}
