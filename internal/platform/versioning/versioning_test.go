package versioning

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type versioned int

func (v versioned) GetVersionID() int { return int(v) }

func TestParseETag(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{`W/"3"`, 3, false},
		{`"12"`, 12, false},
		{`7`, 7, false},
		{` W/"1" `, 1, false},
		{`W/"abc"`, 0, true},
		{`"0"`, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseETag(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseETag(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseETag(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatETag(t *testing.T) {
	if got := FormatETag(4); got != `W/"4"` {
		t.Errorf("expected W/\"4\", got %s", got)
	}
}

func TestExpectedVersion(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if v, err := ExpectedVersion(c); err != nil || v != 0 {
		t.Errorf("expected 0 without header, got %d, %v", v, err)
	}

	req = httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("If-Match", `W/"5"`)
	c = e.NewContext(req, httptest.NewRecorder())
	if v, err := ExpectedVersion(c); err != nil || v != 5 {
		t.Errorf("expected 5, got %d, %v", v, err)
	}

	req = httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("If-Match", "*")
	c = e.NewContext(req, httptest.NewRecorder())
	if v, err := ExpectedVersion(c); err != nil || v != 0 {
		t.Errorf("expected wildcard to be ignored, got %d, %v", v, err)
	}

	req = httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("If-Match", "bogus")
	c = e.NewContext(req, httptest.NewRecorder())
	_, err := ExpectedVersion(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestSetHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	SetHeaders(c, versioned(2), time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))

	if got := rec.Header().Get("ETag"); got != `W/"2"` {
		t.Errorf("expected ETag W/\"2\", got %s", got)
	}
	if got := rec.Header().Get("Last-Modified"); got != "Wed, 04 Mar 2026 05:06:07 GMT" {
		t.Errorf("unexpected Last-Modified %q", got)
	}
}
