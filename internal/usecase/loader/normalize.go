package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"supplychain/internal/domain/catalog"
)

// extraDateFormats extends jinzhu/now's ISO layouts with common spreadsheet
// export layouts.
var extraDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var dateParser = now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  append(append([]string(nil), now.TimeFormats...), extraDateFormats...),
}

// parseDate returns the calendar date written in raw at UTC midnight. The
// time of day and zone offset are dropped.
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if !strings.ContainsAny(s, "-/ ,") {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", catalog.ErrInvalidValue, raw)
	}
	t, err := dateParser.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", catalog.ErrInvalidValue, raw)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// naTokens are the cell spellings read as a missing value, matching the
// pandas CSV defaults.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func missing(raw string) bool {
	_, ok := naTokens[strings.TrimSpace(raw)]
	return ok
}

// columnCodec converts one extract column into store values.
type columnCodec func(raw string) (any, error)

// codecFor picks the converter for col. Missing-value spellings become nil
// for every column type.
func codecFor(col catalog.Column, asDate bool) columnCodec {
	var parse columnCodec
	switch {
	case asDate:
		parse = func(raw string) (any, error) { return parseDate(raw) }
	case col.Type == catalog.Integer:
		parse = parseInteger
	case col.Type == catalog.Real:
		parse = parseReal
	default:
		parse = func(raw string) (any, error) { return raw, nil }
	}
	return func(raw string) (any, error) {
		if missing(raw) {
			return nil, nil
		}
		return parse(raw)
	}
}

func parseReal(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if missing(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && math.IsNaN(f) {
		return nil, nil
	}
	if err != nil || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q is not a number", catalog.ErrInvalidValue, raw)
	}
	return f, nil
}

// parseInteger accepts integral floats such as "12.0", which spreadsheet
// exports produce for whole-number columns.
func parseInteger(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if missing(s) {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && math.IsNaN(f) {
		return nil, nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, so compare against the
	// exact bounds.
	if err != nil || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, fmt.Errorf("%w: %q is not an integer", catalog.ErrInvalidValue, raw)
	}
	return int64(f), nil
}

// keyString renders a normalized value for key comparison.
func keyString(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case time.Time:
		return x.Format(time.DateOnly)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
