package record

import (
	"strconv"

	"github.com/chewxy/math32"
)

var pow10 = [...]float32{1, 10, 100, 1000, 10000}

// FormatFixed renders v with the given number of fractional digits (0-4).
// Both the integer and the fractional part are produced by truncation in
// float32 arithmetic, the way the logger has always written its records:
// 22.299999 with two places is 22.29, never 22.30 by rounding.
// Negative values carry a single leading sign.
func FormatFixed(v float32, places int) string {
	return string(AppendFixed(nil, v, places))
}

// AppendFixed appends the FormatFixed rendering of v to dst.
func AppendFixed(dst []byte, v float32, places int) []byte {
	places = max(0, min(places, len(pow10)-1))

	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return append(dst, "null"...)
	}

	neg := v < 0
	if neg {
		v = -v
	}

	whole := math32.Trunc(v)
	scale := pow10[places]
	frac := int64(v*scale) % int64(scale)

	if neg && (whole != 0 || frac != 0) {
		dst = append(dst, '-')
	}
	dst = strconv.AppendInt(dst, int64(whole), 10)
	if places == 0 {
		return dst
	}

	dst = append(dst, '.')
	digits := strconv.AppendInt(nil, frac, 10)
	for i := len(digits); i < places; i++ {
		dst = append(dst, '0')
	}
	return append(dst, digits...)
}
