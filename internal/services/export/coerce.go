package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder glyph some exchange pages render instead of a price.
const zeroWidthSpace = "​"

// CoerceFloat converts a raw table cell to a float64, falling back to def
// for anything unparseable: nil cells, empty or placeholder strings,
// malformed numbers, and non-finite values. It never fails; a bad cell
// must not abort the dataset it belongs to.
func CoerceFloat(raw interface{}, def float64) float64 {
	switch v := raw.(type) {
	case nil:
		return def
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case float32:
		return CoerceFloat(float64(v), def)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}

	s := strings.TrimSpace(CoerceString(raw))
	if s == "" || s == zeroWidthSpace {
		return def
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// CoerceString renders a raw table cell as a string. Nil becomes the
// empty string; everything else uses its natural formatting.
func CoerceString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
