package bcycle

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
)

// bodyCache reads the request body at most once into memory. A body whose declared size is
// above cacheLimit is not kept; reading it a second time reports a warning and reads whatever
// is left on the stream.
type bodyCache struct {
	limit      int64
	cacheLimit int64

	consumed bool
	cached   []byte
}

func (b *bodyCache) read(r *http.Request, onReread func()) ([]byte, error) {
	if b.consumed && b.cached != nil {
		return b.cached, nil
	}

	if r.ContentLength > b.limit {
		return nil, NewError(CodeRequestEntityTooLarge, errors.Wrapf(ErrBodyTooLarge,
			"declared %d bytes, limit is %d", r.ContentLength, b.limit))
	}

	if b.consumed {
		onReread()
	}

	data, err := readLimited(r.Body, b.limit)
	if err != nil {
		return nil, err
	}

	if !b.consumed && r.ContentLength <= b.cacheLimit {
		b.cached = data
		if b.cached == nil {
			b.cached = []byte{}
		}
	}
	b.consumed = true
	return data, nil
}

func readLimited(body io.Reader, limit int64) ([]byte, error) {
	if body == nil || body == http.NoBody {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read request body")
	}
	if int64(len(data)) > limit {
		return nil, NewError(CodeRequestEntityTooLarge, errors.Wrapf(ErrBodyTooLarge, "limit is %d", limit))
	}
	return data, nil
}
