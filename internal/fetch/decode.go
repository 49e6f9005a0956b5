package fetch

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding is sent on every request; Decode handles each listed coding.
const AcceptEncoding = "br, zstd, gzip, deflate"

var zstdPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

// Decode wraps r according to a Content-Encoding header value. The returned
// release func must be called once the reader is drained.
func Decode(r io.Reader, encoding string) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.TrimSpace(strings.ToLower(encoding)) {
	case "", "identity":
		return r, noop, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return zr, func() { zr.Close() }, nil
	case "deflate":
		fr := flate.NewReader(r)
		return fr, func() { fr.Close() }, nil
	case "br":
		return brotli.NewReader(r), noop, nil
	case "zstd":
		dec := zstdPool.Get().(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			zstdPool.Put(dec)
			return nil, noop, err
		}
		return dec, func() {
			dec.Reset(nil)
			zstdPool.Put(dec)
		}, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding: %s", encoding)
	}
}
