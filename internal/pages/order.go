package pages

import (
	"sort"
	"strconv"
	"strings"
)

// Order sorts page filenames into reading order. Filenames are compared by
// their dot-separated segments so that chapter-prefixed names such as
// "3.12.png" group and order numerically rather than lexically.
func Order(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}

// Compare defines the total order used by Order. Segments are compared
// pairwise; when all shared segments tie, the name with fewer segments
// sorts first.
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

// compareSegment orders two dot-separated filename segments.
//
// Both segments numeric-prefixed: compare the leading integers; on a tie the
// remainders are compared lexically, with an empty remainder sorting after a
// non-empty one. This ranks split-page suffixes before the unsuffixed name
// ("2-1" < "2-2" < "2"). A numeric-prefixed segment sorts before a purely
// non-numeric one; two non-numeric segments compare lexically.
func compareSegment(a, b string) int {
	an, arest, aok := leadingInt(a)
	bn, brest, bok := leadingInt(b)
	switch {
	case aok && bok:
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
		if arest == brest {
			return 0
		}
		if arest == "" {
			return 1
		}
		if brest == "" {
			return -1
		}
		return strings.Compare(arest, brest)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// leadingInt parses the leading decimal digit run of s. ok is false when s
// does not start with a digit or the run does not fit in an int64.
func leadingInt(s string) (n int64, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}
