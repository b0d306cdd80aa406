package app

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/velomap/conflate"
	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/features"
)

// NewRunCommand creates the run command: the full pipeline from two
// GeoJSON inputs to the conflated output and report.
func (a *App) NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match both datasets and write the conflated output",
		Long: `Run executes the full pipeline: segmentation, directional matching,
reassembly, and the conflation decision engine. The conflated features are
written as GeoJSON and the match statistics, rejection log, and pending
queue as a YAML report.

With --reviews, a verdicts file from a previous run is applied before the
output is written; features without a verdict stay pending.`,
		RunE: a.runPipeline,
	}

	a.addParameterFlags(cmd)
	cmd.Flags().StringVar(&a.config.Output, "output", "conflated.geojson", "output GeoJSON file")
	cmd.Flags().StringVar(&a.config.Report, "report", "report.yaml", "output report file")
	cmd.Flags().StringVar(&a.config.Reviews, "reviews", "", "YAML verdicts file to apply")

	return cmd
}

// NewValidateCommand creates the validate command: checks the inputs and
// parameters without matching.
func (a *App) NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check inputs and configuration without matching",
		Long: `Validate loads both datasets and the configuration, reporting dropped
features, duplicate geometries, and parameter violations. Nothing is
matched or written.`,
		RunE: a.runValidate,
	}
}

// NewReviewCommand creates the review command: the manual-review side of
// the pipeline.
func (a *App) NewReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List pending features or apply manual verdicts",
		Long: `Review runs the pipeline and works with the manual-review queue.

With --template, the pending queue is written as a YAML verdicts skeleton
for a reviewer to fill in. With --verdicts, a filled-in file is applied
and the conflated output written, exactly like run --reviews.`,
		RunE: a.runReview,
	}

	a.addParameterFlags(cmd)
	cmd.Flags().String("template", "", "write pending verdicts skeleton to this file")
	cmd.Flags().StringVar(&a.config.Reviews, "verdicts", "", "YAML verdicts file to apply")
	cmd.Flags().StringVar(&a.config.Output, "output", "conflated.geojson", "output GeoJSON file")
	cmd.Flags().StringVar(&a.config.Report, "report", "report.yaml", "output report file")

	return cmd
}

// NewStatsCommand creates the stats command: directional match statistics
// only.
func (a *App) NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print directional match statistics",
		Long: `Stats runs matching and prints the directional completeness report:
how much of each dataset's infrastructure found a counterpart in the
other, overall and per infrastructure class, without conflating.`,
		RunE: a.runStats,
	}

	a.addParameterFlags(cmd)
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "conflate %s\n", a.version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:   %s\n", a.commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:    %s\n", a.date)
			fmt.Fprintf(cmd.OutOrStdout(), "  built by: %s\n", a.builtBy)
		},
	}
}

// addParameterFlags registers the matching and policy parameter flags
// shared by the pipeline commands.
func (a *App) addParameterFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&a.config.SegmentLength, "segment-length", a.config.SegmentLength, "target segment length")
	cmd.Flags().Float64Var(&a.config.BufferDistance, "buffer-distance", a.config.BufferDistance, "candidate lookup radius")
	cmd.Flags().Float64Var(&a.config.MaxHausdorff, "max-hausdorff", a.config.MaxHausdorff, "shape distance threshold")
	cmd.Flags().Float64Var(&a.config.AngularThreshold, "angular-threshold", a.config.AngularThreshold, "orientation threshold in degrees [0,90]")
	cmd.Flags().Float64Var(&a.config.MinMatchedFraction, "min-matched-fraction", a.config.MinMatchedFraction, "matched-length share for a feature to count as matched")
	cmd.Flags().IntVar(&a.config.Workers, "workers", a.config.Workers, "parallel matching workers (0 = all CPUs)")
	cmd.Flags().StringVar(&a.config.BaseModel, "base-model", a.config.BaseModel, "dataset whose geometry wins double matches: A or B")
	cmd.Flags().StringVar(&a.config.CheckMode, "check-mode", a.config.CheckMode, "doubtful feature handling: NoCheck, ManualOnly, AutoThenManual")
	cmd.Flags().StringVar(&a.config.MinTimestamp, "min-timestamp", a.config.MinTimestamp, "trust rule: minimum feature timestamp")
	cmd.Flags().IntVar(&a.config.MinVersion, "min-version", a.config.MinVersion, "trust rule: minimum feature version")
	cmd.Flags().IntVar(&a.config.MinAttributeCount, "min-attribute-count", a.config.MinAttributeCount, "trust rule: minimum non-empty attribute count")
}

// runPipeline executes the full run: match, optionally apply verdicts,
// write output and report.
func (a *App) runPipeline(cmd *cobra.Command, _ []string) error {
	c, err := a.Conflator()
	if err != nil {
		return err
	}

	result, err := c.Run(cmd.Context())
	if err != nil {
		return err
	}

	if a.config.Reviews != "" {
		if err := a.applyReviews(c, a.config.Reviews); err != nil {
			return err
		}
		if result, err = c.Result(); err != nil {
			return err
		}
	}

	if len(result.Pending) > 0 {
		a.logger.Warn().
			Int("pending", len(result.Pending)).
			Msg("features awaiting manual review; use the review command")
	}

	return a.writeOutputs(result)
}

// runValidate loads both datasets and validates the configuration.
func (a *App) runValidate(cmd *cobra.Command, _ []string) error {
	if _, err := a.config.ConflateConfig(); err != nil {
		return err
	}
	if a.config.InputA == "" || a.config.InputB == "" {
		return fmt.Errorf("both --input-a and --input-b are required")
	}

	out := cmd.OutOrStdout()
	for _, input := range []struct {
		path   string
		origin features.Origin
	}{
		{a.config.InputA, features.OriginA},
		{a.config.InputB, features.OriginB},
	} {
		ds, report, err := features.LoadDataset(input.path, input.origin)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "dataset %s: %d features, %.1f infrastructure length\n",
			input.origin, ds.Len(), ds.TotalInfraLength())
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, "  skipped (non-line geometry): %v\n", report.Skipped)
		}
		if len(report.Degenerate) > 0 {
			fmt.Fprintf(out, "  dropped (degenerate): %v\n", report.Degenerate)
		}
		if dups := ds.DuplicateGeometries(); len(dups) > 0 {
			fmt.Fprintf(out, "  duplicate geometries: %v\n", dups)
		}
	}

	fmt.Fprintln(out, "configuration valid")
	return nil
}

// runReview handles the manual-review commands: emitting the pending
// template or applying verdicts.
func (a *App) runReview(cmd *cobra.Command, _ []string) error {
	templatePath := mustGetString(cmd, "template")
	if templatePath == "" && a.config.Reviews == "" {
		return fmt.Errorf("either --template or --verdicts is required")
	}

	c, err := a.Conflator()
	if err != nil {
		return err
	}
	if _, err := c.Run(cmd.Context()); err != nil {
		return err
	}

	if templatePath != "" {
		return a.writePendingTemplate(c, templatePath)
	}

	if err := a.applyReviews(c, a.config.Reviews); err != nil {
		return err
	}
	result, err := c.Result()
	if err != nil {
		return err
	}
	return a.writeOutputs(result)
}

// runStats prints the directional match statistics.
func (a *App) runStats(cmd *cobra.Command, _ []string) error {
	c, err := a.Conflator()
	if err != nil {
		return err
	}

	result, err := c.Run(cmd.Context())
	if err != nil {
		return err
	}

	stats := struct {
		AToB any `yaml:"a_to_b"`
		BToA any `yaml:"b_to_a"`
	}{result.StatsAToB, result.StatsBToA}

	data, err := yaml.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// applyReviews feeds a verdicts file into the review queue. Verdicts for
// unknown or already-resolved features are skipped with a warning.
func (a *App) applyReviews(c conflate.Conflator, path string) error {
	rf, err := conflation.LoadReviewFile(path)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(rf.Verdicts))
	for id := range rf.Verdicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resolved := 0
	for _, id := range ids {
		verdict, err := conflation.ParseVerdict(rf.Verdicts[id])
		if err != nil {
			return fmt.Errorf("verdict for %s: %w", id, err)
		}
		if err := c.Resolve(id, verdict); err != nil {
			a.logger.Warn().Str("decision", id).Err(err).Msg("verdict skipped")
			continue
		}
		resolved++
	}

	a.logger.Info().Int("resolved", resolved).Msg("verdicts applied")
	return nil
}

// writePendingTemplate writes the pending queue as a verdicts skeleton.
func (a *App) writePendingTemplate(c conflate.Conflator, path string) error {
	pending := c.Pending()

	verdicts := make(map[string]string, len(pending))
	for _, d := range pending {
		verdicts[d.ID] = ""
	}

	data, err := yaml.Marshal(conflation.ReviewFile{Verdicts: verdicts})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return err
	}

	a.logger.Info().Int("pending", len(pending)).Str("file", path).Msg("pending template written")
	return nil
}

// writeOutputs writes the conflated GeoJSON and the YAML report.
func (a *App) writeOutputs(result *conflation.Result) error {
	out, err := os.Create(a.config.Output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := result.WriteGeoJSON(out); err != nil {
		return err
	}

	report, err := os.Create(a.config.Report)
	if err != nil {
		return err
	}
	defer report.Close()
	if err := result.WriteReport(report); err != nil {
		return err
	}

	a.logger.Info().
		Str("output", a.config.Output).
		Str("report", a.config.Report).
		Msg("outputs written")
	return nil
}
