package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a JSON:API top-level document.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   Meta    `json:"meta,omitempty"`
	Links  *Links  `json:"links,omitempty"`
}

// Resource is a JSON:API resource object.
type Resource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes any    `json:"attributes,omitempty"`
	Links      *Links `json:"links,omitempty"`
}

// Links holds self and pagination links.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Error is a JSON:API error object.
type Error struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// ErrorSource points at the offending request part.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// Meta is free-form document metadata.
type Meta map[string]any

func writeDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeDocument(w, status, Document{Errors: []Error{{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  http.StatusText(status),
		Detail: detail,
	}}})
}

func writeParamError(w http.ResponseWriter, param, detail string) {
	writeDocument(w, http.StatusBadRequest, Document{Errors: []Error{{
		Status: strconv.Itoa(http.StatusBadRequest),
		Code:   "invalid_parameter",
		Title:  http.StatusText(http.StatusBadRequest),
		Detail: detail,
		Source: &ErrorSource{Parameter: param},
	}}})
}

// page is a 1-based page of a collection.
type page struct {
	Number int
	Size   int
	Total  int
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// parsePage reads page[number] and page[size].
func parsePage(q url.Values, total int) (page, string, error) {
	p := page{Number: 1, Size: defaultPageSize, Total: total}
	if v := q.Get("page[number]"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, "page[number]", strconv.ErrSyntax
		}
		p.Number = n
	}
	if v := q.Get("page[size]"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, "page[size]", strconv.ErrSyntax
		}
		p.Size = min(n, maxPageSize)
	}
	return p, "", nil
}

func (p page) pages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// bounds returns the slice indexes of the page.
func (p page) bounds() (int, int) {
	lo := min((p.Number-1)*p.Size, p.Total)
	return lo, min(lo+p.Size, p.Total)
}

func (p page) links(base string) *Links {
	link := func(n int) string {
		return base + "?page[number]=" + strconv.Itoa(n) + "&page[size]=" + strconv.Itoa(p.Size)
	}
	l := &Links{Self: link(p.Number), First: link(1), Last: link(p.pages())}
	if p.Number > 1 {
		l.Prev = link(p.Number - 1)
	}
	if p.Number < p.pages() {
		l.Next = link(p.Number + 1)
	}
	return l
}

func (p page) meta() Meta {
	return Meta{"total": p.Total, "page": p.Number, "per_page": p.Size, "total_pages": p.pages()}
}
