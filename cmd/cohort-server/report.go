package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ehr/cohort/internal/domain/cohort"
	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/internal/platform/db"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print cohort statistics for a disease",
		RunE: func(cmd *cobra.Command, args []string) error {
			disease, _ := cmd.Flags().GetString("disease")
			measurementID, _ := cmd.Flags().GetInt64("measurement-id")
			format, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := terminology.LoadCatalog(cfg.ConceptSetsFile)
			if err != nil {
				return err
			}

			ctx := context.Background()
			database, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			defer database.Close()

			svc := cohort.NewService(catalog, cohort.NewRepoDuckDB(database))
			ov, err := svc.Overview(ctx, disease, measurementID)
			if err != nil {
				return err
			}
			return renderReport(os.Stdout, ov, catalog, format)
		},
	}
	cmd.Flags().String("disease", "diabetes", "Disease key from the concept-set catalog")
	cmd.Flags().Int64("measurement-id", terminology.GlucoseConceptID, "Measurement concept id for summary statistics")
	cmd.Flags().String("format", "table", "Output format: table, markdown or json")
	return cmd
}

func renderReport(w io.Writer, ov *cohort.Overview, catalog *terminology.Catalog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ov)
	case "table", "markdown", "md":
	default:
		return fmt.Errorf("unknown format %q (want table, markdown or json)", format)
	}
	markdown := format != "table"

	measurement := fmt.Sprintf("concept %d", ov.MeasurementID)
	if m, ok := catalog.Measurement(ov.MeasurementID); ok {
		measurement = fmt.Sprintf("%s (%s)", m.Label, m.Unit)
	}

	counts := newReportTable(w, ov.Label+" cohort")
	counts.AppendHeader(table.Row{"Total people", "Cases", "Controls"})
	counts.AppendRow(table.Row{ov.Counts.TotalPeople, ov.Counts.CaseCount, ov.Counts.ControlCount})
	render(counts, markdown)

	ageSex := newReportTable(w, "Age and sex")
	ageSex.AppendHeader(table.Row{"Cohort", "Sex", "Age group", "Count"})
	for _, r := range ov.AgeSex {
		ageSex.AppendRow(table.Row{r.Cohort, r.Sex, r.AgeGroup, r.Count})
	}
	render(ageSex, markdown)

	stats := newReportTable(w, measurement)
	stats.AppendHeader(table.Row{"Cohort", "N", "P25", "Median", "P75"})
	cohorts := make([]string, 0, len(ov.SummaryStats))
	for name := range ov.SummaryStats {
		cohorts = append(cohorts, name)
	}
	sort.Strings(cohorts)
	for _, name := range cohorts {
		s := ov.SummaryStats[name]
		stats.AppendRow(table.Row{name, s.N, formatStat(s.P25), formatStat(s.Median), formatStat(s.P75)})
	}
	if len(cohorts) == 0 {
		stats.AppendRow(table.Row{"(no values)", 0, "-", "-", "-"})
	}
	render(stats, markdown)
	return nil
}

func newReportTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func render(t table.Writer, markdown bool) {
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func formatStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
