package observations

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/olgasafonova/mast-mcp-server/internal/mast"
)

// DisplayThreshold is the largest result rendered row by row. Larger results
// collapse into per-group counts.
const DisplayThreshold = 100

// ObservationColumns are the observation fields shown in result tables
var ObservationColumns = []string{
	"obs_id",
	"obs_collection",
	"dataproduct_type",
	"instrument_name",
	"filters",
	"t_exptime",
	"s_ra",
	"s_dec",
	"obs_title",
	"wavelength_region",
	"target_name",
	"target_classification",
	"proposal_id",
}

// ProductColumns are the product fields shown in result tables
var ProductColumns = []string{
	"obsID",
	"obs_collection",
	"dataproduct_type",
	"productFilename",
	"productType",
	"productSubGroupDescription",
	"size",
	"dataURI",
}

// GroupCount is the number of rows sharing one grouping value
type GroupCount struct {
	Key   string
	Count int
}

// SummarizeObservations renders an observation result for a target query
func SummarizeObservations(t *mast.Table, target, radius string) string {
	n := t.Len()
	if n == 0 {
		return fmt.Sprintf("No observations found for target: %s within radius: %s", target, radius)
	}
	if n > DisplayThreshold {
		return SummarizeMissionCounts(t, target, radius)
	}
	return fmt.Sprintf("Found %d observations for target: %s within radius: %s:\n", n, target, radius) +
		RenderTable(t, ObservationColumns)
}

// SummarizeMissionCounts renders the number of observations per mission, in
// the order missions first appear
func SummarizeMissionCounts(t *mast.Table, target, radius string) string {
	return fmt.Sprintf("Observation counts by mission for target: %s within radius: %s:\n", target, radius) +
		renderCounts("mission", GroupCounts(t, "obs_collection"))
}

// SummarizeProducts renders the products of the given observations
func SummarizeProducts(t *mast.Table, obsIDs []string) string {
	ids := strings.Join(obsIDs, ", ")
	n := t.Len()
	if n == 0 {
		return fmt.Sprintf("No products found for observations: %s", ids)
	}
	if n > DisplayThreshold {
		return fmt.Sprintf("Product counts by observation for observations: %s:\n", ids) +
			renderCounts("obsID", GroupCounts(t, "obsID"))
	}
	return fmt.Sprintf("Found %d products for observations: %s:\n", n, ids) +
		RenderTable(t, ProductColumns)
}

// SummarizeDetails renders every field of the observation matching obsID.
// When several rows match, the first is shown with a note.
func SummarizeDetails(t *mast.Table, obsID string) string {
	n := t.Len()
	if n == 0 {
		return fmt.Sprintf("No observation found with obs_id: %s", obsID)
	}

	row := t.Rows[0]
	names := t.FieldNames()
	if len(names) == 0 {
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Details for observation ID: %s:", obsID)
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s: %s", name, row.Value(name))
	}
	if n > 1 {
		fmt.Fprintf(&b, "\n(%d observations matched obs_id %s; showing the first)", n, obsID)
	}
	return b.String()
}

// GroupCounts counts rows by the value of key, in first-occurrence order
func GroupCounts(t *mast.Table, key string) []GroupCount {
	if t == nil {
		return nil
	}
	index := make(map[string]int)
	var groups []GroupCount
	for _, row := range t.Rows {
		k := row.Value(key)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, GroupCount{Key: k})
		}
		groups[i].Count++
	}
	return groups
}

func renderCounts(label string, groups []GroupCount) string {
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, fmt.Sprintf("%-10s%s", label, "count"))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("%-10s%d", g.Key, g.Count))
	}
	return strings.Join(lines, "\n")
}

// RenderTable renders the given columns of t as an aligned text table: a
// header line, a dashed rule, then one line per row. Columns the table does
// not carry are skipped; if none remain, every table column is shown.
func RenderTable(t *mast.Table, columns []string) string {
	var cols []string
	for _, c := range columns {
		if t.HasField(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		cols = t.FieldNames()
	}
	if len(cols) == 0 {
		return ""
	}

	cells := make([][]string, t.Len())
	widths := make([]int, len(cols))
	for j, c := range cols {
		widths[j] = utf8.RuneCountInString(c)
	}
	for i, row := range t.Rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			v := row.Value(c)
			cells[i][j] = v
			widths[j] = max(widths[j], utf8.RuneCountInString(v))
		}
	}

	rule := make([]string, len(cols))
	for j, w := range widths {
		rule[j] = strings.Repeat("-", w)
	}

	lines := make([]string, 0, t.Len()+2)
	lines = append(lines, formatLine(cols, widths), strings.Join(rule, " "))
	for _, row := range cells {
		lines = append(lines, formatLine(row, widths))
	}
	return strings.Join(lines, "\n")
}

func formatLine(values []string, widths []int) string {
	var b strings.Builder
	for j, v := range values {
		if j > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v)
		if j < len(values)-1 {
			b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(v)))
		}
	}
	return b.String()
}
