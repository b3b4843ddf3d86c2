package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"finanzas/internal/budget"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

// maxBodyBytes caps request bodies; a record is a few hundred bytes.
const maxBodyBytes = 64 << 10

// ParseMonthParam reads the month query parameter as YYYY-MM, falling back
// to the month of today when it is absent.
func ParseMonthParam(query url.Values, today core.Date) (year, month int, err error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return today.Year(), today.Month(), nil
	}
	return core.ParseMonthKey(v)
}

// ParseMonthWindow reads the optional from and to parameters. Both absent
// means no window at all.
func ParseMonthWindow(query url.Values) (*budget.MonthWindow, error) {
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from == "" && to == "" {
		return nil, nil
	}
	for _, key := range []string{from, to} {
		if key == "" {
			continue
		}
		if _, _, err := core.ParseMonthKey(key); err != nil {
			return nil, err
		}
	}
	if from != "" && to != "" && from > to {
		return nil, &core.InvalidInputError{Field: "from", Reason: "must not be after to"}
	}
	return &budget.MonthWindow{From: from, To: to}, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(p.err, &tooLarge) {
		p.err = &core.InvalidInputError{Field: "body", Reason: "too large"}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = &core.ParseError{Field: "body", Input: truncate(body, 40), Err: err}
			return p.err
		}
		return nil
	}

	var err error
	if p.formData, err = url.ParseQuery(body); err != nil {
		p.err = &core.ParseError{Field: "body", Input: truncate(body, 40), Err: err}
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// RecordForm reads the fields of a new record.
func (p *RequestBodyParser) RecordForm() services.RecordForm {
	return services.RecordForm{
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Date:        p.Get("date"),
	}
}

// PatchForm reads the fields of a record edit.
func (p *RequestBodyParser) PatchForm() services.PatchForm {
	return services.PatchForm{
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Date:        p.Get("date"),
	}
}

// PurchaseForm reads the fields of an installment purchase.
func (p *RequestBodyParser) PurchaseForm() services.PurchaseForm {
	return services.PurchaseForm{
		TotalAmount: p.Get("total_amount"),
		Description: p.Get("description"),
		StartDate:   p.Get("start_date"),
		MonthCount:  p.Get("month_count"),
	}
}

// CutoffDay reads the cutoff_day field as an integer.
func (p *RequestBodyParser) CutoffDay() (int, error) {
	raw := p.Get("cutoff_day")
	if raw == "" {
		return 0, &core.InvalidInputError{Field: "cutoff_day", Reason: "is required"}
	}
	day, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &core.ParseError{Field: "cutoff_day", Input: raw, Err: err}
	}
	return day, nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
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

// sanitizeInput drops control characters other than whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
