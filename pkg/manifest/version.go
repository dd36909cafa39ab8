package manifest

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dotted-numeric version strings and returns
// -1, 0, or 1. Missing trailing segments compare as 0, so "1.2" equals
// "1.2.0". Non-numeric or negative segments also normalize to 0; the
// compatibility gate deliberately stays lenient about malformed input.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av := segmentAt(as, i)
		bv := segmentAt(bs, i)
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func segmentAt(segments []string, i int) int {
	if i >= len(segments) {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(segments[i]))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
