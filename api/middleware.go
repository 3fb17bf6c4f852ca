package api

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// cors allows any origin, which is what the browser front end needs.
func cors(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(c *fasthttp.RequestCtx) {
		c.Response.Header.Set("Access-Control-Allow-Origin", "*")
		c.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.IsOptions() {
			c.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(c)
	}
}

func (h *Handler) logged(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(c *fasthttp.RequestCtx) {
		start := time.Now()
		next(c)

		h.logger.Debug("request",
			zap.ByteString("method", c.Method()),
			zap.ByteString("path", c.Path()),
			zap.Int("status", c.Response.StatusCode()),
			zap.Duration("took", time.Since(start)))
	}
}
