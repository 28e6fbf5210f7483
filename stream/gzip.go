package stream

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipBody decompresses a response body. The gzip header is read on the first
// Read so that connecting never blocks on the first frame.
type gzipBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
	err  error
}

func newGzipBody(body io.ReadCloser) *gzipBody {
	return &gzipBody{body: body}
}

func (g *gzipBody) Read(p []byte) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	if g.zr == nil {
		zr, err := gzip.NewReader(g.body)
		if err != nil {
			g.err = err
			return 0, err
		}
		g.zr = zr
	}
	return g.zr.Read(p)
}

func (g *gzipBody) Close() error {
	if g.zr != nil {
		g.zr.Close()
	}
	return g.body.Close()
}
