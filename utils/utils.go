package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	isoNoMillisLayout = "2006-01-02T15:04:05Z"
	isoMillisLayout   = "2006-01-02T15:04:05.000Z"
)

// characters that break column keys built by string concatenation
var concatUnsafeChars = []string{"\"", "'", "?", "<", ">", ";"}

// StripForConcat removes characters which can't be used in keys composed by concatenation.
// The function is idempotent.
func StripForConcat(text string) string {
	for _, c := range concatUnsafeChars {
		if strings.Contains(text, c) {
			text = strings.ReplaceAll(text, c, "")
		}
	}
	return text
}

// ParseIntervalSize converts interval literal into duration. Literal must be in format Xms,Xs,Xm,Xh,Xd,Xw , X can be fractional.
func ParseIntervalSize(literal string) (time.Duration, error) {
	lit := strings.ToLower(strings.TrimSpace(literal))
	var unit time.Duration
	var num string
	switch {
	case strings.HasSuffix(lit, "ms"):
		unit, num = time.Millisecond, strings.TrimSuffix(lit, "ms")
	case strings.HasSuffix(lit, "s"):
		unit, num = time.Second, strings.TrimSuffix(lit, "s")
	case strings.HasSuffix(lit, "m"):
		unit, num = time.Minute, strings.TrimSuffix(lit, "m")
	case strings.HasSuffix(lit, "h"):
		unit, num = time.Hour, strings.TrimSuffix(lit, "h")
	case strings.HasSuffix(lit, "d"):
		unit, num = 24*time.Hour, strings.TrimSuffix(lit, "d")
	case strings.HasSuffix(lit, "w"):
		unit, num = 7*24*time.Hour, strings.TrimSuffix(lit, "w")
	default:
		return 0, fmt.Errorf("unknown interval unit in %q", literal)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("invalid interval value in %q", literal)
	}
	return time.Duration(n * float64(unit)), nil
}

// ParseISOTime parses service timestamps. Timestamps without zone are treated as UTC.
func ParseISOTime(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", val)
}

// ToISOMillis formats time the way the time series service does , UTC with milliseconds.
func ToISOMillis(t time.Time) string {
	return t.UTC().Format(isoMillisLayout)
}

// ToISONoMillis formats time as UTC ISO-8601 without the fraction of a second.
func ToISONoMillis(t time.Time) string {
	return t.UTC().Format(isoNoMillisLayout)
}

// StringifyValue converts value into string the same way the browser side does (String(value)).
func StringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return formatNumber(f)
		}
		return val.String()
	case float64:
		return formatNumber(val)
	case float32:
		return formatNumber(float64(val))
	case []interface{}:
		parts := make([]string, len(val))
		for i := range val {
			if val[i] != nil {
				parts[i] = StringifyValue(val[i])
			}
		}
		return strings.Join(parts, ",")
	case map[string]interface{}:
		return "[object Object]"
	default:
		return fmt.Sprint(val)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// exponent without leading zeros: 1e-07 -> 1e-7
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + exp
}

func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
