package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/evcraddock/estate-crm/internal/model"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{450000, "450,000"},
		{1234567.6, "1,234,568"},
		{-2500, "-2,500"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.in); got != tt.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a very long listing title", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestBudget(t *testing.T) {
	lo, hi := 100000.0, 250000.0
	tests := []struct {
		lo, hi *float64
		want   string
	}{
		{nil, nil, "-"},
		{&lo, nil, "$100,000+"},
		{nil, &hi, "up to $250,000"},
		{&lo, &hi, "$100,000-250,000"},
	}
	for _, tt := range tests {
		if got := budget(tt.lo, tt.hi); got != tt.want {
			t.Errorf("budget = %q, want %q", got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(45); got != "####......  45%" {
		t.Errorf("progressBar(45) = %q", got)
	}
	if got := progressBar(140); got != "########## 100%" {
		t.Errorf("progressBar(140) = %q", got)
	}
}

func TestPrintPropertyTable(t *testing.T) {
	var buf bytes.Buffer
	beds := 3
	err := printPropertyTable(&buf, []model.Property{
		{ID: "p1", Title: "Marina View", Type: model.PropertyTypeApartment, Status: model.PropertyStatusAvailable, Price: 450000, Location: "Dubai Marina", Bedrooms: &beds},
		{ID: "p2", Title: "Palm Villa", Type: model.PropertyTypeVilla, Status: model.PropertyStatusSold, Price: 2500000},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ID", "TITLE", "Marina View", "$450,000", "$2,500,000", "Total: 2 properties"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printLeadTable(&buf, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "No leads found." {
		t.Errorf("output = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := parseDate("2026-12-31"); err != nil {
		t.Errorf("date: %v", err)
	}
	if _, err := parseDate("2026-12-31T10:00:00Z"); err != nil {
		t.Errorf("rfc3339: %v", err)
	}
	if _, err := parseDate("next week"); err == nil {
		t.Error("expected error")
	}
}
