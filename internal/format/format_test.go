package format

import (
	"testing"
	"time"
)

func TestFmtCurrencyEUR(t *testing.T) {
	cases := []struct {
		minor int64
		lang  string
		want  string
	}{
		{450, "de", "4,50 €"},
		{0, "de", "0,00 €"},
		{123456, "de", "1.234,56 €"},
		{-250, "de", "-2,50 €"},
		{450, "en", "€4.50"},
	}
	for _, tc := range cases {
		if got := FmtCurrency(tc.minor, "eur", tc.lang); got != tc.want {
			t.Errorf("FmtCurrency(%d, %s) = %q, want %q", tc.minor, tc.lang, got, tc.want)
		}
	}
}

func TestEuroRounds(t *testing.T) {
	if got := Euro(3.2); got != "3,20 €" {
		t.Fatalf("Euro(3.2) = %q", got)
	}
	if got := Euro(2.999); got != "3,00 €" {
		t.Fatalf("Euro(2.999) = %q", got)
	}
}

func TestFmtDate(t *testing.T) {
	d := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	if got := FmtDate(d, "de"); got != "07.03.2024" {
		t.Fatalf("de date = %q", got)
	}
	if got := FmtDate(d, "en"); got != "Mar 7, 2024" {
		t.Fatalf("en date = %q", got)
	}
}
