package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finanzas/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	today := core.NewDate(2024, 5, 15)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"explicit", url.Values{"month": {"2023-11"}}, 2023, 11, false},
		{"defaults to today", url.Values{}, 2024, 5, false},
		{"blank defaults to today", url.Values{"month": {"  "}}, 2024, 5, false},
		{"month out of range", url.Values{"month": {"2024-13"}}, 0, 0, true},
		{"wrong layout", url.Values{"month": {"05/2024"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m, err := ParseMonthParam(tt.query, today)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (y != tt.wantYear || m != tt.wantMonth) {
				t.Errorf("got %d-%d, want %d-%d", y, m, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseMonthWindow(t *testing.T) {
	w, err := ParseMonthWindow(url.Values{})
	if err != nil || w != nil {
		t.Fatalf("empty query: window %+v, err %v", w, err)
	}

	w, err = ParseMonthWindow(url.Values{"from": {"2024-02"}})
	if err != nil || w.From != "2024-02" || w.To != "" {
		t.Fatalf("open window: %+v, %v", w, err)
	}

	if _, err := ParseMonthWindow(url.Values{"to": {"nope"}}); err == nil {
		t.Error("expected error for malformed to")
	}
	if _, err := ParseMonthWindow(url.Values{"from": {"2024-03"}, "to": {"2024-01"}}); err == nil {
		t.Error("expected error for inverted window")
	}
}

func newParser(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	p := NewRequestBodyParser(httptest.NewRecorder(), r)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, `{"amount": 12.5, "description": " Lunch\u0000 ", "date": "2024-05-03", "month_count": 3}`, "application/json")

	if !p.IsJSON() {
		t.Fatal("expected JSON body")
	}
	form := p.RecordForm()
	if form.Amount != "12.5" || form.Description != "Lunch" || form.Date != "2024-05-03" {
		t.Errorf("RecordForm() = %+v", form)
	}
	if got := p.PurchaseForm().MonthCount; got != "3" {
		t.Errorf("MonthCount = %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := newParser(t, "amount=1200%2C00&description=Rent&start_date=2024-01-31&month_count=12&total_amount=99", "application/x-www-form-urlencoded")

	if p.IsJSON() {
		t.Fatal("form body detected as JSON")
	}
	if got := p.PatchForm(); got.Amount != "1200,00" || got.Description != "Rent" || got.Date != "" {
		t.Errorf("PatchForm() = %+v", got)
	}
	pf := p.PurchaseForm()
	if pf.TotalAmount != "99" || pf.StartDate != "2024-01-31" || pf.MonthCount != "12" {
		t.Errorf("PurchaseForm() = %+v", pf)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "", "")
	if got := p.Get("amount"); got != "" {
		t.Errorf("Get() on empty body = %q", got)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	if err := NewRequestBodyParser(httptest.NewRecorder(), r).Parse(); err == nil {
		t.Error("expected error for malformed JSON")
	}

	big := strings.NewReader("description=" + strings.Repeat("a", maxBodyBytes+1))
	r = httptest.NewRequest(http.MethodPost, "/", big)
	err := NewRequestBodyParser(httptest.NewRecorder(), r).Parse()
	if _, ok := err.(*core.InvalidInputError); !ok {
		t.Errorf("oversized body error = %v", err)
	}
}

func TestCutoffDay(t *testing.T) {
	tests := []struct {
		body    string
		want    int
		wantErr bool
	}{
		{`{"cutoff_day": 15}`, 15, false},
		{"cutoff_day=3", 3, false},
		{`{"cutoff_day": "x"}`, 0, true},
		{`{}`, 0, true},
	}
	for _, tt := range tests {
		p := newParser(t, tt.body, "")
		got, err := p.CutoffDay()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CutoffDay(%s) = %d, %v", tt.body, got, err)
		}
	}
}
