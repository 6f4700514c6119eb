package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hemaweb/featmock/pkg/httputil"
)

// Context carries one matched request through a handler. It is built per
// request and never stored.
type Context struct {
	Request *http.Request
	Writer  http.ResponseWriter
	URL     *url.URL
	// Params is the regexp submatch slice for pattern routes (index 0 is the
	// whole match) and nil for literal routes.
	Params []string
	// Query holds the last value of every query parameter.
	Query     map[string]string
	Body      any
	Feature   string
	RequestID string

	rw *trackingWriter
}

// NewContext wraps w so the dispatcher can tell whether the handler replied.
func NewContext(w http.ResponseWriter, r *http.Request, params []string) *Context {
	tw := &trackingWriter{ResponseWriter: w}
	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[len(vs)-1]
		}
	}
	return &Context{
		Request: r,
		Writer:  tw,
		URL:     r.URL,
		Params:  params,
		Query:   query,
		rw:      tw,
	}
}

// Reply writes payload as JSON with the default content type and CORS
// headers; headers override the defaults. A second reply is ignored.
func (c *Context) Reply(status int, payload any, headers map[string]string) {
	if c.Written() {
		return
	}
	httputil.Reply(c.Writer, status, payload, headers)
}

// Written reports whether a response has been started.
func (c *Context) Written() bool {
	return c.rw.status != 0
}

// Status returns the written status code, or 0 before a reply.
func (c *Context) Status() int {
	return c.rw.status
}

// Param returns capture group i, or "" when absent.
func (c *Context) Param(i int) string {
	if i < 0 || i >= len(c.Params) {
		return ""
	}
	return c.Params[i]
}

// QueryInt parses a query parameter as an int, returning def when it is
// missing or malformed.
func (c *Context) QueryInt(key string, def int) int {
	s, ok := c.Query[key]
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// BindBody decodes the parsed body into dst via a JSON round-trip.
func (c *Context) BindBody(dst any) error {
	if c.Body == nil {
		return fmt.Errorf("bind body: empty body")
	}
	data, err := json.Marshal(c.Body)
	if err != nil {
		return fmt.Errorf("bind body: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("bind body: %w", err)
	}
	return nil
}

// trackingWriter records the status of the first WriteHeader or Write.
type trackingWriter struct {
	http.ResponseWriter
	status int
}

func (w *trackingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
