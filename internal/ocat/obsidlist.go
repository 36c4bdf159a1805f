package ocat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseObsidList parses a free-form obsid list as typed on the express
// approval form. Entries may be separated by whitespace, commas, colons, or
// semicolons, and a dash joins two obsids into an inclusive range. The result
// is deduplicated, sorted ascending, and never includes the seed obsid the
// form was opened from.
func ParseObsidList(input string, seed int) ([]int, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ':' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	seen := make(map[int]bool)
	for _, field := range fields {
		if lo, hi, ok := strings.Cut(field, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("bad obsid range start %q: %w", field, err)
			}
			stop, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad obsid range stop %q: %w", field, err)
			}
			if stop < start {
				start, stop = stop, start
			}
			for obsid := start; obsid <= stop; obsid++ {
				seen[obsid] = true
			}
			continue
		}
		obsid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("bad obsid %q: %w", field, err)
		}
		seen[obsid] = true
	}
	delete(seen, seed)

	obsids := make([]int, 0, len(seen))
	for obsid := range seen {
		obsids = append(obsids, obsid)
	}
	sort.Ints(obsids)
	return obsids, nil
}
