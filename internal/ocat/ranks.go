package ocat

// RankColumns is the column-oriented form of a rank-ordered parameter group:
// parameter name to the ordered list of its per-rank values. Rank order is
// positional and significant.
type RankColumns map[string][]any

// ColumnsFromRecords converts a record-oriented rank list (one map per rank)
// into the column orientation used for persistence and comparison. Members
// absent from a record contribute nil at that rank, so every column has one
// entry per rank.
func ColumnsFromRecords(records []map[string]any, members []string) RankColumns {
	columns := make(RankColumns, len(members))
	for _, member := range members {
		column := make([]any, 0, len(records))
		for _, record := range records {
			column = append(column, Coerce(record[member]))
		}
		columns[member] = column
	}
	return columns
}

// RecordsFromColumns converts column-oriented rank data back into one map per
// rank. Ragged columns are tolerated: short columns contribute nil beyond
// their length.
func RecordsFromColumns(columns RankColumns, members []string) []map[string]any {
	ranks := 0
	for _, column := range columns {
		if len(column) > ranks {
			ranks = len(column)
		}
	}
	records := make([]map[string]any, 0, ranks)
	for i := 0; i < ranks; i++ {
		record := make(map[string]any, len(members))
		for _, member := range members {
			column := columns[member]
			if i < len(column) {
				record[member] = column[i]
			} else {
				record[member] = nil
			}
		}
		records = append(records, record)
	}
	return records
}

// columnEqual compares two per-rank value lists. Lists of different length
// are never equal; equal-length lists compare rank by rank under the
// approximate rules.
func columnEqual(first, second []any) bool {
	if len(first) != len(second) {
		return false
	}
	for i := range first {
		if !ApproxEquals(first[i], second[i]) {
			return false
		}
	}
	return true
}
