package utils

import (
	"testing"
	"time"
)

func TestParseIntervalSize(t *testing.T) {
	cases := map[string]time.Duration{
		"1h":    time.Hour,
		"30s":   30 * time.Second,
		"500ms": 500 * time.Millisecond,
		"2d":    48 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		"1.5m":  90 * time.Second,
		"15M":   15 * time.Minute,
	}
	for lit, expected := range cases {
		d, err := ParseIntervalSize(lit)
		if err != nil {
			t.Errorf("%s: unexpected error %v", lit, err)
			continue
		}
		if d != expected {
			t.Errorf("%s: expected %s , got %s", lit, expected, d)
		}
	}
	for _, lit := range []string{"", "h", "10y", "abcs", "NaNs"} {
		if _, err := ParseIntervalSize(lit); err == nil {
			t.Errorf("%q must be rejected", lit)
		}
	}
}

func TestStripForConcat(t *testing.T) {
	stripped := StripForConcat(`temp"er'a?t<u>re;`)
	if stripped != "temperature" {
		t.Error("Wrong stripped value ", stripped)
	}
	if StripForConcat(stripped) != stripped {
		t.Error("Strip must be idempotent")
	}
	if StripForConcat("plain value 1.5") != "plain value 1.5" {
		t.Error("Safe characters must be kept")
	}
}

func TestStringifyValue(t *testing.T) {
	cases := []struct {
		in  interface{}
		out string
	}{
		{nil, "null"},
		{"abc", "abc"},
		{true, "true"},
		{int64(42), "42"},
		{42.0, "42"},
		{1.5, "1.5"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{[]interface{}{1.0, nil, "a"}, "1,,a"},
		{map[string]interface{}{"a": 1}, "[object Object]"},
	}
	for _, c := range cases {
		if got := StringifyValue(c.in); got != c.out {
			t.Errorf("StringifyValue(%v) = %q , expected %q", c.in, got, c.out)
		}
	}
}

func TestToISONoMillis(t *testing.T) {
	ts := time.Date(2021, 1, 1, 10, 20, 30, 999*int(time.Millisecond), time.FixedZone("x", 3600))
	if ToISONoMillis(ts) != "2021-01-01T09:20:30Z" {
		t.Error("Wrong format ", ToISONoMillis(ts))
	}
	if ToISOMillis(ts) != "2021-01-01T09:20:30.999Z" {
		t.Error("Wrong format ", ToISOMillis(ts))
	}
	parsed, err := ParseISOTime("2021-01-01T09:20:30.123Z")
	if err != nil || parsed.UnixMilli() != time.Date(2021, 1, 1, 9, 20, 30, 123*int(time.Millisecond), time.UTC).UnixMilli() {
		t.Error("Wrong parsed time ", parsed, err)
	}
}
