// Package api exposes the counting service over HTTP.
package api

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/service"
)

const outputPrefix = "/output/"

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// NewServer wraps h with CORS and request logging.
func NewServer(h *Handler, maxBodySize int) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            h.logged(cors(h.route)),
		Name:               "split-count",
		MaxRequestBodySize: maxBodySize,
		ReadTimeout:        time.Minute,
		WriteTimeout:       2 * time.Minute,
	}
}

type detectResponse struct {
	OutputImageURL string `json:"output_image_url"`
	LeftCount      int    `json:"left_count"`
	RightCount     int    `json:"right_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) route(c *fasthttp.RequestCtx) {
	path := string(c.Path())

	switch {
	case path == "/detect":
		if !c.IsPost() {
			respondError(c, "Method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		h.detect(c)
	case strings.HasPrefix(path, outputPrefix):
		if !c.IsGet() && !c.IsHead() {
			respondError(c, "Method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		h.output(c, strings.TrimPrefix(path, outputPrefix))
	case path == "/health":
		if !c.IsGet() && !c.IsHead() {
			respondError(c, "Method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		respondJSON(c, map[string]string{"status": "ok"}, fasthttp.StatusOK)
	default:
		respondError(c, "Not found", fasthttp.StatusNotFound)
	}
}

func (h *Handler) detect(c *fasthttp.RequestCtx) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, "No file uploaded", fasthttp.StatusBadRequest)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, "Failed to read file", fasthttp.StatusInternalServerError)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		respondError(c, "Failed to read file", fasthttp.StatusInternalServerError)
		return
	}

	out, err := h.svc.Count(c, service.Upload{Filename: fh.Filename, Data: data})
	if err != nil {
		status := fasthttp.StatusInternalServerError
		if service.IsInput(err) {
			status = fasthttp.StatusBadRequest
		} else {
			h.logger.Error("count failed", zap.String("filename", fh.Filename), zap.Error(err))
		}

		respondError(c, err.Error(), status)
		return
	}

	respondJSON(c, detectResponse{
		OutputImageURL: outputPrefix + out.OutputName,
		LeftCount:      out.Left,
		RightCount:     out.Right,
	}, fasthttp.StatusOK)
}

func (h *Handler) output(c *fasthttp.RequestCtx, name string) {
	path, err := h.svc.Output(name)
	if err != nil {
		if service.IsNotFound(err) {
			respondError(c, err.Error(), fasthttp.StatusNotFound)
			return
		}

		h.logger.Error("resolve output", zap.String("name", name), zap.Error(err))
		respondError(c, "Failed to read output", fasthttp.StatusInternalServerError)
		return
	}

	c.SendFile(path)
	c.SetContentType("image/jpeg")
}

func respondJSON(c *fasthttp.RequestCtx, v interface{}, status int) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	c.SetContentType("application/json")
	c.SetStatusCode(status)
	c.SetBody(data)
}

func respondError(c *fasthttp.RequestCtx, msg string, status int) {
	respondJSON(c, errorResponse{Error: msg}, status)
}
