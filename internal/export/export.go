package export

import (
	"fmt"
	"strings"

	"github.com/reactorwatch/reactorwatch/internal/state"
)

// metricUnits maps metric display names to their standard units.
var metricUnits = map[string]string{
	"DO Drop Rate":     "mg/L/s",
	"DO Recovery Time": "s",
	"OUR":              "mg O2/L/h",
	"sOUR":             "mg O2/g/h",
	"DO Saturation":    "mg/L",
	"Fit R-squared":    "-",
}

// Units returns the standard units for a metric display name, "-" when
// unknown.
func Units(metric string) string {
	if u, ok := metricUnits[metric]; ok {
		return u
	}
	return "-"
}

// formatValue renders a value in scientific notation with three
// significant decimals, the convention used in the lab's publications.
func formatValue(v float64) string {
	return fmt.Sprintf("%.3e", v)
}

type row struct {
	name  string
	value float64
}

// snapshotRows collects the metrics present in the snapshot, in a fixed
// presentation order. Absent metrics are left out rather than zeroed.
func snapshotRows(snap *state.Snapshot) []row {
	m := snap.Metrics
	if m == nil {
		return nil
	}

	var rows []row
	if !m.InsufficientData {
		rows = append(rows,
			row{"DO Drop Rate", m.DropRate},
			row{"Fit R-squared", m.DropRateR2},
		)
	}
	if m.RecoveryTimeSeconds != nil {
		rows = append(rows, row{"DO Recovery Time", *m.RecoveryTimeSeconds})
	}
	if m.OUR != nil {
		rows = append(rows, row{"OUR", *m.OUR})
	}
	if m.SOUR != nil {
		rows = append(rows, row{"sOUR", *m.SOUR})
	}
	if m.DoSaturation != nil {
		rows = append(rows, row{"DO Saturation", *m.DoSaturation})
	}
	return rows
}

// conditions describes the snapshot's experimental context as ordered
// name/value pairs.
func conditions(snap *state.Snapshot) [][2]string {
	return [][2]string{
		{"Reactor", snap.ReactorID},
		{"DO", fmt.Sprintf("%.2f mg/L", snap.DO)},
		{"pH", fmt.Sprintf("%.2f", snap.PH)},
		{"Temperature", fmt.Sprintf("%.1f C", snap.Temperature)},
		{"State", string(snap.Health)},
	}
}

// FormatSnapshot renders the snapshot's metrics table in the requested
// format: "latex" or "markdown".
func FormatSnapshot(snap *state.Snapshot, format string) (string, error) {
	rows := snapshotRows(snap)
	switch format {
	case "latex":
		return formatLaTeX(snap, rows), nil
	case "markdown":
		return formatMarkdown(snap, rows), nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}

func formatLaTeX(snap *state.Snapshot, rows []row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\\begin{table}[h]\n\\caption{Oxygen Utilization Metrics at %s}\n",
		snap.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("\\begin{tabular}{lll}\n\\hline\nMetric & Value & Units \\\\\n\\hline\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s & %s & %s \\\\\n", r.name, formatValue(r.value), Units(r.name))
	}
	b.WriteString("\\hline\n\\end{tabular}\n\\label{tab:oxygen_metrics}\n\\end{table}\n")

	b.WriteString("\\begin{itemize}\n")
	for _, c := range conditions(snap) {
		fmt.Fprintf(&b, "\\item %s: %s\n", c[0], c[1])
	}
	b.WriteString("\\end{itemize}\n")
	return b.String()
}

func formatMarkdown(snap *state.Snapshot, rows []row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Oxygen Utilization Metrics (%s)\n\n",
		snap.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("| Metric | Value | Units |\n|--------|--------|-------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.name, formatValue(r.value), Units(r.name))
	}
	b.WriteString("\n### Experimental Conditions\n\n")
	for _, c := range conditions(snap) {
		fmt.Fprintf(&b, "- %s: %s\n", c[0], c[1])
	}
	return b.String()
}
