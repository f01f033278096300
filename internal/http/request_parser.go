package http

// This file parses request bodies and path parameters into ledger records.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shareledger/internal/core"
)

// maxBodyBytes caps request bodies; a record is a handful of short fields.
const maxBodyBytes = 16 << 10

// errBadBody marks bodies that are neither JSON nor form-encoded.
var errBadBody = errors.New("malformed request body")

// RequestBodyParser handles both JSON and form-encoded bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, bounded by maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadBody, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errBadBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadBody, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data.
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

// GetBool accepts JSON booleans and yes/true/on/1 in any case.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "yes", "true", "on", "1":
		return true
	default:
		return false
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newline and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// ParseExpense reads date, category, paid_by, amount and notes.
func ParseExpense(p *RequestBodyParser) (core.ExpenseRecord, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return core.ExpenseRecord{
		Date:     p.Get("date"),
		Category: p.Get("category"),
		PaidBy:   core.Payer(p.Get("paid_by")),
		Amount:   amount,
		Notes:    p.Get("notes"),
	}, nil
}

// ParseContribution reads date, name, amount, virtual and notes.
func ParseContribution(p *RequestBodyParser) (core.ContributionRecord, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.ContributionRecord{}, err
	}
	return core.ContributionRecord{
		Date:    p.Get("date"),
		Name:    p.Get("name"),
		Amount:  amount,
		Virtual: p.GetBool("virtual"),
		Notes:   p.Get("notes"),
	}, nil
}

// periodParam returns the {period} path value after checking its shape.
func periodParam(r *http.Request) (string, error) {
	period := strings.TrimSpace(r.PathValue("period"))
	if !core.ValidPeriod(period) {
		return "", fmt.Errorf("%w: %q (want YYYY-MM)", core.ErrInvalidPeriod, period)
	}
	return period, nil
}
