// This file implements utilities for parsing and validating request data
// shared by the form handlers and the REST API.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes bounds form and JSON bodies.
const maxBodyBytes = 64 << 10

var errMonthRange = errors.New("month must be between 1 and 12")

// MonthParams holds a year/month selection.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from query, defaulting each missing
// value to the current one. Present but malformed values are an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	p := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("invalid year %q", v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("invalid month %q", v)
		}
		if m < 1 || m > 12 {
			return MonthParams{}, errMonthRange
		}
		p.Month = m
	}
	return p, nil
}

// Prev returns the month before p.
func (p MonthParams) Prev() MonthParams {
	if p.Month == 1 {
		return MonthParams{Year: p.Year - 1, Month: 12}
	}
	return MonthParams{Year: p.Year, Month: p.Month - 1}
}

// Next returns the month after p.
func (p MonthParams) Next() MonthParams {
	if p.Month == 12 {
		return MonthParams{Year: p.Year + 1, Month: 1}
	}
	return MonthParams{Year: p.Year, Month: p.Month + 1}
}

func (p MonthParams) Label() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

func (p MonthParams) Query() string {
	return "year=" + strconv.Itoa(p.Year) + "&month=" + strconv.Itoa(p.Month)
}

// RequestBodyParser reads a JSON object or a form-encoded body once and
// exposes its fields as strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse decodes the body. A JSON content type, or a body starting with '{',
// is decoded as JSON; anything else as a form.
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

	mediaType, _, _ := mime.ParseMediaType(p.contentType)
	if mediaType == "application/json" || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Password returns key without sanitizing, so whitespace stays significant.
func (p *RequestBodyParser) Password(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
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

// ParseFormOrFail parses a bounded form body and returns an error response on
// failure, or nil.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *ResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Malformed request")
	}
	return nil
}
