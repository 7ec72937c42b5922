package canopy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Result is the labeled output of one statistic, destined for one
// artifact. Row order is meaningful and preserved through persistence.
type Result struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// aggregationKind selects which primitive combination a Statistic runs.
type aggregationKind int

const (
	// groupTopK groups matched rows by a column, counts each group, and
	// keeps the k highest counts.
	groupTopK aggregationKind = iota
	// countRows counts the matched rows.
	countRows
)

// predicate matches one cell of a row against a statistic's filter.
type predicate struct {
	column string
	match  func(value string) bool
}

// Statistic describes one transform of the ingested table: a set of
// filter predicates followed by an aggregation. Statistics are pure
// functions of the table; applying one twice yields identical results.
type Statistic struct {
	Name string

	kind    aggregationKind
	filters []predicate

	groupColumn string // groupTopK: column whose values form the groups
	k           int    // groupTopK: number of groups kept
	countLabel  string // countRows: column header of the count artifact
}

// Apply runs the statistic over the table and returns a fresh Result.
// Zero matching rows is a valid answer, not an error: counts come back as
// 0 and group selections come back empty.
func (s *Statistic) Apply(t *Table) (*Result, error) {
	matched, err := s.matchRows(t)
	if err != nil {
		return nil, &AggregationError{Statistic: s.Name, Err: err}
	}

	switch s.kind {
	case groupTopK:
		col, ok := t.Schema.Column(s.groupColumn)
		if !ok {
			return nil, &AggregationError{
				Statistic: s.Name,
				Err:       fmt.Errorf("column %q not in schema", s.groupColumn),
			}
		}
		top := topK(groupCount(t, col, matched), s.k)
		rows := make([][]string, 0, len(top))
		for _, tally := range top {
			rows = append(rows, []string{tally.Key, strconv.Itoa(tally.Count)})
		}
		return &Result{
			Name:    s.Name,
			Columns: []string{s.groupColumn, "count"},
			Rows:    rows,
		}, nil

	case countRows:
		return &Result{
			Name:    s.Name,
			Columns: []string{s.countLabel},
			Rows:    [][]string{{strconv.Itoa(len(matched))}},
		}, nil
	}

	return nil, &AggregationError{
		Statistic: s.Name,
		Err:       fmt.Errorf("unknown aggregation kind %d", s.kind),
	}
}

// matchRows returns the indices of rows satisfying every filter predicate.
func (s *Statistic) matchRows(t *Table) ([]int, error) {
	cols := make([]int, len(s.filters))
	for i, f := range s.filters {
		col, ok := t.Schema.Column(f.column)
		if !ok {
			return nil, fmt.Errorf("column %q not in schema", f.column)
		}
		cols[i] = col
	}

	matched := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		keep := true
		for j, f := range s.filters {
			if !f.match(t.Value(i, cols[j])) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, i)
		}
	}
	return matched, nil
}

// groupTally is one group's key and row count.
type groupTally struct {
	Key   string
	Count int
}

// groupCount tallies the matched rows per distinct value of the group
// column. Rows with an empty group value are excluded; an absent address
// or species can't meaningfully form a group.
func groupCount(t *Table, col int, rows []int) map[string]int {
	counts := make(map[string]int)
	for _, i := range rows {
		key := t.Value(i, col)
		if strings.TrimSpace(key) == "" {
			continue
		}
		counts[key]++
	}
	return counts
}

// topK orders tallies by descending count, ties broken by ascending key,
// and keeps the first k. The total order makes repeated runs byte-identical.
func topK(counts map[string]int, k int) []groupTally {
	tallies := make([]groupTally, 0, len(counts))
	for key, count := range counts {
		tallies = append(tallies, groupTally{Key: key, Count: count})
	}

	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].Count != tallies[j].Count {
			return tallies[i].Count > tallies[j].Count
		}
		return tallies[i].Key < tallies[j].Key
	})

	if k < len(tallies) {
		tallies = tallies[:k]
	}
	return tallies
}

func exactMatch(want string) func(string) bool {
	return func(value string) bool { return value == want }
}

func foldMatch(want string) func(string) bool {
	return func(value string) bool { return strings.EqualFold(value, want) }
}

// nonEmpty treats both empty and whitespace-only values as absent.
func nonEmpty(value string) bool {
	return strings.TrimSpace(value) != ""
}

// builtinStatistics assembles the four shipped statistics. Every filter
// value comes from the job configuration; no statistic embeds a species or
// flag literal.
func builtinStatistics(cfg *JobConfig) []*Statistic {
	flagMatch := exactMatch(cfg.MaintenanceFlagValue)
	if cfg.CaseInsensitiveFlags {
		flagMatch = foldMatch(cfg.MaintenanceFlagValue)
	}

	return []*Statistic{
		{
			Name:        "densest_address",
			kind:        groupTopK,
			groupColumn: cfg.AddressColumn,
			k:           1,
		},
		{
			Name:        "top_species",
			kind:        groupTopK,
			groupColumn: speciesCommonColumn,
			k:           cfg.TopK,
		},
		{
			Name:       "flagged_species_count",
			kind:       countRows,
			countLabel: "flagged_trees",
			filters: []predicate{
				{column: speciesCommonColumn, match: exactMatch(cfg.TargetSpeciesFlagged)},
				{column: cfg.MaintenanceColumn, match: flagMatch},
			},
		},
		{
			Name:       "permitted_species_count",
			kind:       countRows,
			countLabel: "permitted_trees",
			filters: []predicate{
				{column: speciesCommonColumn, match: exactMatch(cfg.TargetSpeciesPermit)},
				{column: cfg.PermitColumn, match: nonEmpty},
			},
		},
	}
}
