package parser

import (
	"reflect"
	"testing"
)

func TestParseDateCell(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		baseYear  int
		wantKey   string
		wantLabel string
	}{
		{"numeric day.month", "28.03", 2025, "2025-03-28", "28 Mar"},
		{"numeric with weekday prefix", "Sa 28.03", 2025, "2025-03-28", "28 Mar"},
		{"numeric with explicit year", "26.03.2026", 2025, "2026-03-26", "26 Mar"},
		{"named month with weekday", "Sa 17 Jan", 2026, "2026-01-17", "17 Jan"},
		{"named month dotted weekday", "Wed. 14 Jan", 2026, "2026-01-14", "14 Jan"},
		{"german month name", "3 Mär", 2025, "2025-03-03", "03 Mär"},
		{"german mrz variant", "12 Mrz", 2025, "2025-03-12", "12 Mrz"},
		{"german october", "7 Okt", 2025, "2025-10-07", "07 Okt"},
		{"collapsed whitespace", "  28.03  ", 2025, "2025-03-28", "28 Mar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, label := ParseDateCell(tt.input, tt.baseYear)
			if key != tt.wantKey || label != tt.wantLabel {
				t.Errorf("ParseDateCell(%q, %d) = (%q, %q), want (%q, %q)",
					tt.input, tt.baseYear, key, label, tt.wantKey, tt.wantLabel)
			}
		})
	}
}

func TestParseDateCellFallback(t *testing.T) {
	// Unrecognized month tokens fall back to the raw text as both key
	// and label instead of erroring.
	key, label := ParseDateCell("17 Shkurt", 2026)
	if key != "17 Shkurt" || label != "17 Shkurt" {
		t.Errorf("fallback = (%q, %q), want raw text for both", key, label)
	}

	key, label = ParseDateCell("", 2026)
	if key != "" || label != "" {
		t.Errorf("empty input = (%q, %q), want empty", key, label)
	}
}

func TestParseDateCellIdempotentOnLabel(t *testing.T) {
	// Re-parsing a formatted label must not shift the derived key.
	key, label := ParseDateCell("Sa 17 Jan", 2026)
	key2, _ := ParseDateCell(label, 2026)
	if key2 != key {
		t.Errorf("re-parsed label %q gave key %q, want %q", label, key2, key)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantCurrency string
		wantPrice    string
		wantOK       bool
	}{
		{"chf prefix", "CHF 199.00", "CHF", "199.00", true},
		{"chf no decimals", "CHF 199", "CHF", "199", true},
		{"euro symbol suffix comma decimal", "129,90 €", "EUR", "129.90", true},
		{"euro symbol prefix", "€ 59", "EUR", "59", true},
		{"eur word", "EUR 1.234,56", "EUR", "1234.56", true},
		{"thousands with dot decimal", "CHF 1,234.50", "CHF", "1234.50", true},
		{"comma as thousands", "EUR 1,234", "EUR", "1234", true},
		{"nbsp between", "CHF 249.00", "CHF", "249.00", true},
		{"no price", "no price", "", "", false},
		{"sold out", "ausgebucht", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			currency, price, ok := ParsePrice(tt.input)
			if currency != tt.wantCurrency || price != tt.wantPrice || ok != tt.wantOK {
				t.Errorf("ParsePrice(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.input, currency, price, ok, tt.wantCurrency, tt.wantPrice, tt.wantOK)
			}
		})
	}
}

func TestParsePriceIdempotent(t *testing.T) {
	currency, price, ok := ParsePrice("129,90 €")
	if !ok {
		t.Fatal("first parse failed")
	}
	currency2, price2, ok2 := ParsePrice(currency + " " + price)
	if !ok2 || currency2 != currency || price2 != price {
		t.Errorf("re-parse = (%q, %q, %v), want (%q, %q, true)", currency2, price2, ok2, currency, price)
	}
}

func TestExtractTimes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"colon pair", "10:00 12:30", []string{"10:00", "12:30"}},
		{"dot separators", "11.40 13.05", []string{"11:40", "13:05"}},
		{"mixed text", "dep 6:05 arr 8:40 (direct)", []string{"6:05", "8:40"}},
		{"single token", "10:00", []string{"10:00"}},
		{"no tokens", "keine Zeiten", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTimes(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTimes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMinutesBetween(t *testing.T) {
	tests := []struct {
		name     string
		dep, arr string
		want     int
		wantOK   bool
	}{
		{"same day", "10:00", "12:30", 150, true},
		{"past midnight", "23:30", "1:10", 100, true},
		{"zero", "8:00", "8:00", 0, true},
		{"bad dep", "oops", "12:00", 0, false},
		{"bad arr", "10:00", "12", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MinutesBetween(tt.dep, tt.arr)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MinutesBetween(%q, %q) = (%d, %v), want (%d, %v)",
					tt.dep, tt.arr, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		mins int
		want string
	}{
		{150, "2h 30m"},
		{120, "2h"},
		{45, "45m"},
		{0, ""},
		{-5, ""},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.mins); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.mins, got, tt.want)
		}
	}
}
