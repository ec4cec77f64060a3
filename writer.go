package bcycle

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/advdv/bcycle/internal/try"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// responseWriter turns the final state of a context into bytes on the wire.
type responseWriter struct {
	cfg Config
}

func newResponseWriter(cfg Config) *responseWriter {
	return &responseWriter{cfg: cfg}
}

// write sends status, headers and rd to the client. A nil rd sends no body. The input is
// closed on every path. A stream that fails before its first byte leaves the response
// uncommitted.
func (w *responseWriter) write(c *Context, rd io.Reader) (err error) {
	if rd != nil {
		defer try.Close(&err, rd)
	}

	dst := c.resp.Header()
	for k, vs := range c.header {
		dst[k] = append([]string(nil), vs...)
	}

	if rd == nil {
		c.resp.WriteHeader(c.status)
		return nil
	}

	if etag := c.header.Get("ETag"); etag != "" && etagMatches(c.req, etag) {
		return writeNotModified(c)
	}

	if w.cfg.AutogenerateEtags && c.header.Get("ETag") == "" &&
		c.req.Method == http.MethodGet && c.status == http.StatusOK {
		b, err := io.ReadAll(rd)
		if err != nil {
			return errors.Wrap(err, "failed to buffer body for etag")
		}

		etag := checksumETag(b)
		dst.Set("ETag", etag)
		if etagMatches(c.req, etag) {
			return writeNotModified(c)
		}
		rd = bytes.NewReader(b)
	}

	out := newCompressedWriter(c.resp, c.req, w.cfg.Compression, c.status)
	if _, err := io.Copy(out, rd); err != nil {
		// nothing was sent yet, leave the status line to the last resort handler
		if out.decided {
			_ = out.Close()
		}
		return errors.Wrap(err, "failed to write body")
	}

	if err := out.Close(); err != nil {
		return errors.Wrap(err, "failed to flush body")
	}
	return nil
}

func writeNotModified(c *Context) error {
	h := c.resp.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	c.resp.WriteHeader(http.StatusNotModified)
	return nil
}

// checksumETag returns a strong, quoted entity tag for b.
func checksumETag(b []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(b), 16) + `"`
}

// etagMatches reports whether the If-None-Match header of r lists etag, or is a wildcard.
func etagMatches(r *http.Request, etag string) bool {
	inm := r.Header.Get("If-None-Match")
	if inm == "" {
		return false
	}

	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(inm, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == want {
			return true
		}
	}
	return false
}
