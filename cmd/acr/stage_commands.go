package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CivicActions/Drupal-ACR/internal/pipeline"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/stageexec"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var codes []string
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Scrape tagged issues for each success criterion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd, stage.Collect, stageInputs{codes: codes})
		},
	}
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "Only collect these criterion codes (comma separated)")
	return cmd
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "summarize [issues.csv]",
		Short: "Summarize each collected issue with the AI provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := stageInputs{limit: limit}
			if len(args) > 0 {
				inputs.issuesPath = args[0]
			}
			return ctx.runStage(cmd, stage.Summarize, inputs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Only summarize the first N issues")
	return cmd
}

func newAggregateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate [issues.csv] [summaries.csv]",
		Short: "Assess each criterion from its issue summaries",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var inputs stageInputs
			if len(args) > 0 {
				inputs.issuesPath = args[0]
			}
			if len(args) > 1 {
				inputs.summariesPath = args[1]
			}
			return ctx.runStage(cmd, stage.Aggregate, inputs)
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render [assessments.csv]",
		Short: "Render the OpenACR YAML report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := stageInputs{reportPath: output}
			if len(args) > 0 {
				inputs.assessmentsPath = args[0]
			}
			return ctx.runStage(cmd, stage.Render, inputs)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report path (defaults to a timestamped file in the output directory)")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var from, only string
	var skip []string
	var codes []string
	var limit int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline stages in order",
		Long: "Run the pipeline stages in one process. Each stage reads the latest artifact\n" +
			"of the previous one, so --from resumes a partial run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defer ctx.flushMetrics()

			results, err := pipeline.Run(cmd.Context(), ctx.stageFactory(stageInputs{codes: codes, limit: limit}), pipeline.Options{
				From:     from,
				Only:     only,
				Skip:     skip,
				Logger:   logger,
				Notifier: ctx.notifier(),
				LockDir:  cfg.Paths.OutputDir,
			})
			printResults(cmd.OutOrStdout(), results)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", textutil.Count(len(results), "stage", "stages"))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start at this stage (collect, summarize, aggregate, render)")
	cmd.Flags().StringVar(&only, "only", "", "Run only this stage")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Skip these stages")
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "Only collect these criterion codes")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only summarize the first N issues")
	return cmd
}

func (c *commandContext) runStage(cmd *cobra.Command, name string, inputs stageInputs) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	handler, err := c.stageFactory(inputs)(name)
	if err != nil {
		return err
	}
	defer c.flushMetrics()

	result, err := stageexec.Run(cmd.Context(), stageexec.Options{
		Logger:   logger,
		Notifier: c.notifier(),
		Handler:  handler,
		LockDir:  cfg.Paths.OutputDir,
	})
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), []stage.Result{result})
	return nil
}

func printResults(out io.Writer, results []stage.Result) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Stage,
			strconv.Itoa(result.Tally.Succeeded),
			strconv.Itoa(result.Tally.Failed),
			strconv.Itoa(result.Tally.Placeholder),
			strconv.Itoa(result.Tally.Unresolved),
			result.Output,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Succeeded", "Failed", "Placeholder", "Unresolved", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	for _, result := range results {
		fmt.Fprintf(out, "%s: %s -> %s\n", result.Stage, result.Tally, result.Output)
	}
}
