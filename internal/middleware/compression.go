package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"application/xml",
		},
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{
		config: config,
		stats:  &CompressionStats{},
	}
	cm.pool = sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
			return gz
		},
	}
	return cm
}

// Handler returns a Gin middleware that gzips eligible responses.
// Small responses are buffered and written uncompressed.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{
			ResponseWriter: c.Writer,
			middleware:     cm,
		}
		c.Writer = gzw
		defer gzw.finish()

		c.Next()
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipResponseWriter buffers writes until it knows whether the response
// crosses the minimum size for compression.
type gzipResponseWriter struct {
	gin.ResponseWriter
	middleware *CompressionMiddleware
	buf        []byte
	gzipWriter *gzip.Writer
	decided    bool
}

func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	if gzw.gzipWriter != nil {
		return gzw.gzipWriter.Write(data)
	}
	if gzw.decided {
		return gzw.ResponseWriter.Write(data)
	}

	gzw.buf = append(gzw.buf, data...)
	if len(gzw.buf) >= gzw.middleware.config.MinSize {
		if err := gzw.startCompression(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.Write([]byte(s))
}

func (gzw *gzipResponseWriter) startCompression() error {
	if !gzw.middleware.shouldCompress(gzw.Header().Get("Content-Type")) {
		return gzw.flushPlain()
	}

	gzw.decided = true
	gzw.Header().Set("Content-Encoding", "gzip")
	gzw.Header().Set("Vary", "Accept-Encoding")
	gzw.Header().Del("Content-Length")

	gz := gzw.middleware.pool.Get().(*gzip.Writer)
	gz.Reset(gzw.ResponseWriter)
	gzw.gzipWriter = gz

	if len(gzw.buf) > 0 {
		if _, err := gz.Write(gzw.buf); err != nil {
			return err
		}
		gzw.buf = nil
	}
	return nil
}

// flushPlain writes the buffered response without compression.
func (gzw *gzipResponseWriter) flushPlain() error {
	gzw.decided = true
	if len(gzw.buf) > 0 {
		_, err := gzw.ResponseWriter.Write(gzw.buf)
		gzw.buf = nil
		return err
	}
	return nil
}

// finish flushes any buffered data and closes the gzip stream.
func (gzw *gzipResponseWriter) finish() {
	originalSize := int64(gzw.Size())

	if gzw.gzipWriter != nil {
		gzw.gzipWriter.Close()
		gzw.middleware.pool.Put(gzw.gzipWriter)
		gzw.gzipWriter = nil
		gzw.middleware.stats.RecordRequest(originalSize, true)
		return
	}

	gzw.flushPlain()
	gzw.middleware.stats.RecordRequest(originalSize, false)
}

func (gzw *gzipResponseWriter) Flush() {
	if gzw.gzipWriter != nil {
		gzw.gzipWriter.Flush()
	}
	gzw.ResponseWriter.Flush()
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	mutex              sync.RWMutex
}

// RecordRequest records a request's compression outcome
func (cs *CompressionStats) RecordRequest(size int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += size
	if compressed {
		cs.CompressedRequests++
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	ratio := float64(0)
	if cs.TotalRequests > 0 {
		ratio = float64(cs.CompressedRequests) / float64(cs.TotalRequests)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_ratio":    ratio,
	}
}

var _ http.Flusher = (*gzipResponseWriter)(nil)
