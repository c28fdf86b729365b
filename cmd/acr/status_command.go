package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// artifactStages names the stage that writes each artifact kind.
var artifactStages = map[artifact.Kind]string{
	artifact.Issues:      stage.Collect,
	artifact.Summaries:   stage.Summarize,
	artifact.Assessments: stage.Aggregate,
	artifact.Report:      stage.Render,
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest artifact of each stage and stage readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			outputDir := cfg.Paths.OutputDir

			fmt.Fprintf(out, "Config:     %s%s\n", ctx.configPath,
				textutil.Ternary(ctx.configExists, "", " (not found; defaults in use)"))
			fmt.Fprintf(out, "Output dir: %s\n\n", outputDir)

			rows := make([][]string, 0, len(artifact.Kinds))
			present := 0
			for _, kind := range artifact.Kinds {
				row, ok, err := artifactRow(kind, outputDir)
				if err != nil {
					return err
				}
				if ok {
					present++
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Latest artifact", "Written", "Rows"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				"", fmt.Sprintf("%d of %d present", present, len(artifact.Kinds)),
			))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			factory := ctx.stageFactory(stageInputs{})
			for _, name := range stage.Order {
				handler, err := factory(name)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine(name, statusError, errorDetail(err), colorize))
					continue
				}
				fmt.Fprintln(out, renderHealthLine(handler.HealthCheck(cmd.Context()), colorize))
			}
			fmt.Fprintln(out, lockLine(outputDir, colorize))
			return nil
		},
	}
}

func artifactRow(kind artifact.Kind, dir string) ([]string, bool, error) {
	name := artifactStages[kind]
	path, err := kind.Latest(dir)
	if errors.Is(err, services.ErrNotFound) {
		return []string{name, "-", "-", "-"}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	written := "-"
	if ts, ok := kind.Timestamp(path); ok {
		written = ts.Format("2006-01-02 15:04")
	}
	rows := "-"
	if kind.Ext == artifact.ExtCSV {
		count, err := artifact.CountRows(path)
		if err != nil {
			rows = "unreadable"
		} else {
			rows = strconv.Itoa(count)
		}
	}
	return []string{name, filepath.Base(path), written, rows}, true, nil
}

func lockLine(dir string, colorize bool) string {
	lock, err := artifact.AcquireLock(dir)
	if err != nil {
		return renderStatusLine("lock", statusWarn, "held by another acr process", colorize)
	}
	held := lock.Path()
	_ = lock.Release()
	return renderStatusLine("lock", statusOK, "free ("+held+")", colorize)
}

// errorDetail trims the wrapped error chain down to the first line.
func errorDetail(err error) string {
	message := err.Error()
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	return message
}
