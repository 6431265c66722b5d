// Package http serves the schema registry over a read-only HTTP API.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/zdb/zschema/core/exporter"
	"github.com/zdb/zschema/core/registry"
	"github.com/zdb/zschema/core/render"
	"github.com/zdb/zschema/core/schema"
	"github.com/zdb/zschema/ports"
)

// Deps are the handler's collaborators.
type Deps struct {
	Source    ports.SchemaSource
	Renderers *render.Registry  // default: render.DefaultRegistry
	Metrics   *exporter.Metrics // optional

	Logger zerolog.Logger

	// MetricsPath mounts the Prometheus handler when Metrics is set
	// (default: /metrics).
	MetricsPath    string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Version        string

	// CacheSize bounds the rendered export cache (default 256, negative
	// disables it). CacheTTL expires entries (default 10m).
	CacheSize int
	CacheTTL  time.Duration
}

// Handler serves the schema API. The schema source can be swapped while
// serving; each request sees one consistent source.
type Handler struct {
	deps   Deps
	source atomic.Pointer[sourceRef]
}

// sourceRef pairs a source with the exports rendered from it, so swapping
// the source drops every cached export at once.
type sourceRef struct {
	ports.SchemaSource
	renders *expirable.LRU[renderKey, []byte] // nil when caching is off
}

type renderKey struct {
	name   string
	target schema.Target
}

// NewHandler creates a handler.
func NewHandler(deps Deps) *Handler {
	if deps.Renderers == nil {
		deps.Renderers = render.DefaultRegistry
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 8 << 20
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.CacheSize == 0 {
		deps.CacheSize = 256
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 10 * time.Minute
	}
	h := &Handler{deps: deps}
	h.SetSource(deps.Source)
	return h
}

// SetSource replaces the schema source, e.g. after a catalog reload.
func (h *Handler) SetSource(src ports.SchemaSource) {
	ref := &sourceRef{SchemaSource: src}
	if h.deps.CacheSize > 0 {
		ref.renders = expirable.NewLRU[renderKey, []byte](h.deps.CacheSize, nil, h.deps.CacheTTL)
	}
	h.source.Store(ref)
}

func (h *Handler) current() ports.SchemaSource {
	return h.source.Load().SchemaSource
}

// Router builds the chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.deps.Logger))
	if h.deps.Metrics != nil {
		r.Use(NewMetricsMiddleware(h.deps.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.deps.RequestTimeout))

	r.Get("/health", h.health)
	r.Get("/version", h.version)
	if h.deps.Metrics != nil {
		r.Handle(h.deps.MetricsPath, h.deps.Metrics.Handler())
	}

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", h.listSchemas)
		r.Get("/{name}", h.getSchema)
		r.Get("/{name}/render/{target}", h.renderSchema)
		r.Post("/{name}/validate", h.validateDocument)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"schemas": len(h.current().Names()),
	})
}

func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": h.deps.Version,
		"service": "zschema",
	})
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	sums, err := h.current().Summaries()
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	p, param, err := parsePage(r.URL.Query(), len(sums))
	if err != nil {
		writeParamError(w, param, param+" must be a positive integer")
		return
	}
	lo, hi := p.bounds()

	data := make([]Resource, 0, hi-lo)
	for _, s := range sums[lo:hi] {
		data = append(data, Resource{
			Type:       "schema",
			ID:         s.Name,
			Attributes: s,
			Links:      &Links{Self: "/schemas/" + s.Name},
		})
	}
	writeDocument(w, http.StatusOK, Document{Data: data, Meta: p.meta(), Links: p.links("/schemas")})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *schema.Record, bool) {
	rec, ok := h.lookupIn(h.source.Load(), w, r)
	return chi.URLParam(r, "name"), rec, ok
}

func (h *Handler) lookupIn(ref *sourceRef, w http.ResponseWriter, r *http.Request) (*schema.Record, bool) {
	rec, err := ref.Get(chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, registry.ErrUnknownSchema):
		writeError(w, http.StatusNotFound, "unknown_schema", err.Error())
		return nil, false
	case err != nil:
		h.internalError(w, r, err)
		return nil, false
	}
	return rec, true
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	name, rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	desc := schema.Describe(rec)
	desc.Name = name
	writeDocument(w, http.StatusOK, Document{
		Data: Resource{Type: "schema", ID: name, Attributes: desc},
		Meta: Meta{"leaves": schema.CountLeaves(rec)},
	})
}

// renderSchema returns the rendered export itself, not a JSON:API
// document, so the response can be fed to the target unchanged.
func (h *Handler) renderSchema(w http.ResponseWriter, r *http.Request) {
	ref := h.source.Load()
	name := chi.URLParam(r, "name")
	target, err := schema.ParseTarget(chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_target", err.Error())
		return
	}

	key := renderKey{name: name, target: target}
	body, hit := []byte(nil), false
	if ref.renders != nil {
		body, hit = ref.renders.Get(key)
	}
	if !hit {
		rec, ok := h.lookupIn(ref, w, r)
		if !ok {
			return
		}
		start := time.Now()
		out, err := h.deps.Renderers.Render(target, name, rec)
		if err != nil {
			if errors.Is(err, schema.ErrUnknownTarget) {
				writeError(w, http.StatusBadRequest, "unknown_target", err.Error())
				return
			}
			h.internalError(w, r, err)
			return
		}
		if body, err = json.Marshal(out); err != nil {
			h.internalError(w, r, err)
			return
		}
		if h.deps.Metrics != nil {
			h.deps.Metrics.ObserveRender(name, target, time.Since(start))
		}
		if ref.renders != nil {
			ref.renders.Add(key, body)
		}
	}

	if r.URL.Query().Has("pretty") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			body = buf.Bytes()
		}
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *Handler) validateDocument(w http.ResponseWriter, r *http.Request) {
	name, rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	doc, err := decodeDocument(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res := schema.ValidateDocument(name, rec, doc)
	if h.deps.Metrics != nil {
		h.deps.Metrics.ObserveValidation(res)
	}
	writeDocument(w, http.StatusOK, Document{
		Data: Resource{Type: "validation", ID: middleware.GetReqID(r.Context()), Attributes: res},
	})
}

// decodeDocument decodes JSON keeping numbers exact, so 64-bit integers
// are range-checked without float rounding.
func decodeDocument(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("request body holds more than one JSON value")
	}
	return doc, nil
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.deps.Logger.Error().
		Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
