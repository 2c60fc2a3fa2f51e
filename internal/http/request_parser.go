package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"creditos/internal/core"
)

const maxFormBytes = 32 << 10

// RequestBodyParser reads form or JSON bodies. DELETE bodies are not parsed by
// Request.ParseForm, so handlers that accept parameters on DELETE use this.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitised value for key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// paramFromRequest looks in the query string first, then the body.
func paramFromRequest(r *http.Request, key string) string {
	if v := sanitizeInput(r.URL.Query().Get(key)); v != "" {
		return v
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return ""
	}
	return p.Get(key)
}

// ParseFormOrFail parses a form post and returns the error response to send, if any.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato de solicitud inválido")
	}
	for k, vs := range r.PostForm {
		for i := range vs {
			vs[i] = sanitizeInput(vs[i])
		}
		r.PostForm[k] = vs
	}
	return nil
}

// pathCreditID reads the {id} wildcard.
func pathCreditID(r *http.Request) (core.CreditID, *HTMXResponseBuilder) {
	id, err := core.ParseCreditID(r.PathValue("id"))
	if err != nil {
		return "", BadRequestError("Identificador de crédito inválido")
	}
	return id, nil
}

// sanitizeInput drops control characters other than tab and newlines and trims spaces.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
