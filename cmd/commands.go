package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"workorder-rag/internal/helper"
	"workorder-rag/internal/models"
	"workorder-rag/internal/report"
	"workorder-rag/internal/scheduler"
)

var (
	generateProblem string
	generateNoSave  bool
	reportOut       string
	scheduleRoster  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a work order for a problem description",
	RunE:  runGenerate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored work orders",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a stored work order as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var reportCmd = &cobra.Command{
	Use:   "report [id]",
	Short: "Render a stored work order to HTML or Markdown",
	Long: `Renders the work order with its steps, equipment table and signature
fields. The format follows the --out extension: .md writes Markdown, anything
else writes HTML.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [id...]",
	Short: "Assign stored work orders to technicians",
	Long: `Assigns each work order, or every stored order when no id is given, to
the least loaded technician of the roster that has the experience its
priority requires.`,
	RunE: runSchedule,
}

func init() {
	generateCmd.Flags().StringVarP(&generateProblem, "problem", "p", "", "problem description")
	generateCmd.Flags().BoolVar(&generateNoSave, "no-save", false, "print the work order without storing it")
	_ = generateCmd.MarkFlagRequired("problem")

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (.html or .md)")
	_ = reportCmd.MarkFlagRequired("out")

	scheduleCmd.Flags().StringVarP(&scheduleRoster, "roster", "r", "./configs/roster.yaml", "technician roster file")

	rootCmd.AddCommand(generateCmd, listCmd, showCmd, reportCmd, scheduleCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}
	resp, err := pipeline.Query(ctx, generateProblem)
	if err != nil {
		var schemaErr *models.ResponseSchemaError
		if errors.As(err, &schemaErr) {
			log.Debug().Str("raw", schemaErr.Raw).Msg("Rejected model output")
		}
		return fmt.Errorf("error generating work order: %w", err)
	}
	for _, s := range resp.Sources {
		log.Info().Str("source", s.Chunk.DocumentID).Int("ordinal", s.Chunk.Ordinal).Float64("score", s.Score).Msg("Context fragment")
	}

	if !generateNoSave {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.Save(ctx, resp.WorkOrder); err != nil {
			return fmt.Errorf("error saving work order: %w", err)
		}
	}

	helper.PrettyPrint(cmd.OutOrStdout(), resp.WorkOrder)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	orders, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		cmd.Println("No work orders stored.")
		return nil
	}
	for _, o := range orders {
		problem := ""
		if len(o.Problems) > 0 {
			problem = o.Problems[0].Description
		}
		cmd.Printf("%s  %s  %-8s %s\n", o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.HighestPriority(), problem)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	order, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("error loading work order %s: %w", args[0], err)
	}
	helper.PrettyPrint(cmd.OutOrStdout(), order)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	order, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("error loading work order %s: %w", args[0], err)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(reportOut), ".md") {
		data = []byte(report.Markdown(order))
	} else if data, err = report.HTML(order); err != nil {
		return err
	}

	if err := helper.CreateFolder(filepath.Dir(reportOut)); err != nil {
		return err
	}
	if err := os.WriteFile(reportOut, data, 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	log.Info().Str("id", order.ID).Str("path", reportOut).Msg("Wrote report")
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	roster, err := scheduler.LoadRoster(scheduleRoster)
	if err != nil {
		return fmt.Errorf("error loading roster: %w", err)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var orders []models.WorkOrder
	if len(args) == 0 {
		if orders, err = store.List(ctx); err != nil {
			return err
		}
	}
	for _, id := range args {
		order, err := store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("error loading work order %s: %w", id, err)
		}
		orders = append(orders, *order)
	}

	tasks := make([]scheduler.Task, len(orders))
	for i := range orders {
		tasks[i] = scheduler.TaskFromWorkOrder(&orders[i])
	}
	assignments, _ := scheduler.Assign(roster.Technicians, tasks, roster.MaxWorkload)
	if len(assignments) < len(tasks) {
		log.Warn().Int("tasks", len(tasks)).Int("assigned", len(assignments)).Msg("Some work orders were not assigned")
	}
	helper.PrettyPrint(cmd.OutOrStdout(), assignments)
	return nil
}
