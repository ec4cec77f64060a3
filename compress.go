package bcycle

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

const (
	encodingGzip   = "gzip"
	encodingBrotli = "br"
)

// compressedWriter decides on the first write whether the body is compressed. The choice holds
// for the rest of the response. The status line is deferred until that decision is made.
type compressedWriter struct {
	w      http.ResponseWriter
	cfg    CompressionConfig
	accept string
	status int

	decided bool
	enc     io.WriteCloser
}

func newCompressedWriter(w http.ResponseWriter, r *http.Request, cfg CompressionConfig, status int) *compressedWriter {
	return &compressedWriter{w: w, cfg: cfg, accept: r.Header.Get("Accept-Encoding"), status: status}
}

func (cw *compressedWriter) Write(b []byte) (int, error) {
	if !cw.decided {
		cw.decide(len(b))
	}
	if cw.enc != nil {
		return cw.enc.Write(b)
	}
	return cw.w.Write(b)
}

// Close flushes the encoder. An empty body still gets its status line.
func (cw *compressedWriter) Close() error {
	if !cw.decided {
		cw.decide(0)
	}
	if cw.enc != nil {
		return cw.enc.Close()
	}
	return nil
}

func (cw *compressedWriter) decide(firstWrite int) {
	cw.decided = true
	defer cw.w.WriteHeader(cw.status)

	h := cw.w.Header()
	encoding := cw.negotiate(h, firstWrite)
	if encoding == "" {
		return
	}

	h.Set("Content-Encoding", encoding)
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	switch encoding {
	case encodingBrotli:
		cw.enc = brotli.NewWriterLevel(cw.w, cw.cfg.BrotliLevel)
	case encodingGzip:
		gz, err := gzip.NewWriterLevel(cw.w, cw.cfg.GzipLevel)
		if err != nil {
			gz = gzip.NewWriter(cw.w)
		}
		cw.enc = gz
	}
}

// negotiate returns the encoding to use, or the empty string to send the body as is.
func (cw *compressedWriter) negotiate(h http.Header, firstWrite int) string {
	switch {
	case !cw.cfg.Gzip && !cw.cfg.Brotli,
		cw.status < http.StatusOK,
		cw.status == http.StatusNoContent,
		cw.status == http.StatusNotModified,
		h.Get("Content-Encoding") != "",
		!cw.cfg.compressible(h.Get("Content-Type")):
		return ""
	}

	size := firstWrite
	if cl, err := strconv.Atoi(h.Get("Content-Length")); err == nil {
		size = cl
	}
	if size < cw.cfg.MinSize {
		return ""
	}

	accepted := acceptedEncodings(cw.accept)
	switch {
	case cw.cfg.Brotli && accepted[encodingBrotli]:
		return encodingBrotli
	case cw.cfg.Gzip && accepted[encodingGzip]:
		return encodingGzip
	}
	return ""
}

// acceptedEncodings parses an Accept-Encoding header. Codings with a zero quality are left out.
func acceptedEncodings(header string) map[string]bool {
	accepted := map[string]bool{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		accepted[name] = true
	}
	return accepted
}
