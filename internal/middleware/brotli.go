package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// CompressOptions configures response compression.
type CompressOptions struct {
	Level         int
	MinSize       int
	ExcludedPaths []string // Path prefixes served uncompressed, e.g. /metrics
}

// DefaultCompressOptions compresses JSON bodies of at least 1 KiB.
var DefaultCompressOptions = CompressOptions{
	Level:   brotli.DefaultCompression,
	MinSize: 1024,
}

// compressWriter holds the body back until MinSize is reached, then
// switches to brotli for the rest of the response.
type compressWriter struct {
	gin.ResponseWriter
	br      *brotli.Writer
	pending []byte
	minSize int
	active  bool
}

func (w *compressWriter) Write(data []byte) (int, error) {
	if w.active {
		return w.br.Write(data)
	}

	w.pending = append(w.pending, data...)
	if len(w.pending) < w.minSize {
		return len(data), nil
	}

	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.active = true

	if _, err := w.br.Write(w.pending); err != nil {
		return 0, err
	}
	w.pending = nil
	return len(data), nil
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// finish emits a short body uncompressed or closes the brotli stream.
func (w *compressWriter) finish() error {
	if w.active {
		return w.br.Close()
	}
	if len(w.pending) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.pending)
	w.pending = nil
	return err
}

// Compress returns a Brotli middleware with DefaultCompressOptions.
func Compress() gin.HandlerFunc {
	return CompressWithOptions(DefaultCompressOptions)
}

// CompressWithOptions returns a Brotli middleware.
func CompressWithOptions(opts CompressOptions) gin.HandlerFunc {
	if opts.Level < brotli.BestSpeed || opts.Level > brotli.BestCompression {
		opts.Level = brotli.DefaultCompression
	}
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultCompressOptions.MinSize
	}

	return func(c *gin.Context) {
		if isUpgrade(c.Request) || excluded(c.Request.URL.Path, opts.ExcludedPaths) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		cw := &compressWriter{
			ResponseWriter: c.Writer,
			br:             brotli.NewWriterLevel(c.Writer, opts.Level),
			minSize:        opts.MinSize,
		}
		c.Writer = cw

		defer func() {
			if err := cw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

// isUpgrade reports WebSocket handshakes, which must not be wrapped.
func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func excluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
