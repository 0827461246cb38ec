package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/litmus/internal/bench"
	"github.com/hochfrequenz/litmus/internal/catalog"
	"github.com/hochfrequenz/litmus/internal/config"
	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/export"
	"github.com/hochfrequenz/litmus/internal/judge"
	"github.com/hochfrequenz/litmus/internal/llm"
	"github.com/hochfrequenz/litmus/internal/store"
	"github.com/hochfrequenz/litmus/internal/tools"
	"github.com/hochfrequenz/litmus/tui"
)

var (
	runModels      []string
	runTools       []string
	runImages      []string
	runTemperature float64
	runMaxTokens   int
	runEvaluate    bool

	judgeModelFlag    string
	judgeCriteriaFlag string

	historyLimit       int
	historyLeaderboard bool

	exportFormat string
	exportOut    string

	modelsAddJudge bool
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run PROMPT",
		Short: "Benchmark a prompt across models",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringArrayVarP(&runModels, "model", "m", nil, "model to benchmark (repeatable, id or catalog name)")
	runCmd.Flags().StringSliceVar(&runTools, "tools", nil, "tools to enable (calculator, web_search)")
	runCmd.Flags().StringArrayVar(&runImages, "image", nil, "image file to attach (repeatable)")
	runCmd.Flags().Float64Var(&runTemperature, "temperature", 0, "sampling temperature (0 uses config)")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "max output tokens (0 uses config)")
	runCmd.Flags().BoolVar(&runEvaluate, "evaluate", false, "judge the run after completion")
	rootCmd.AddCommand(runCmd)

	// judge command
	judgeCmd := &cobra.Command{
		Use:   "judge RUN_ID",
		Short: "Score a past run with the judge model",
		Args:  cobra.ExactArgs(1),
		RunE:  runJudge,
	}
	judgeCmd.Flags().StringVar(&judgeModelFlag, "judge-model", "", "judge model (defaults to config)")
	judgeCmd.Flags().StringVar(&judgeCriteriaFlag, "criteria", "auto", "criteria set (auto, default, coding)")
	rootCmd.AddCommand(judgeCmd)

	// compare command
	compareCmd := &cobra.Command{
		Use:   "compare RUN_ID MODEL_A MODEL_B",
		Short: "Pairwise-compare two responses from a run",
		Args:  cobra.ExactArgs(3),
		RunE:  runCompare,
	}
	compareCmd.Flags().StringVar(&judgeModelFlag, "judge-model", "", "judge model (defaults to config)")
	rootCmd.AddCommand(compareCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	historyCmd.Flags().BoolVar(&historyLeaderboard, "leaderboard", false, "show per-model score averages instead")
	rootCmd.AddCommand(historyCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run's responses and scores",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	// export command
	exportCmd := &cobra.Command{
		Use:   "export RUN_ID",
		Short: "Export a run to JSON or CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json or csv)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (defaults to config export_dir)")
	rootCmd.AddCommand(exportCmd)

	// models command
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE:  runModelsList,
	}
	modelsAddCmd := &cobra.Command{
		Use:   "add ID NAME",
		Short: "Add a model to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE:  runModelsAdd,
	}
	modelsAddCmd.Flags().BoolVar(&modelsAddJudge, "judge", false, "mark the model as a judge candidate")
	modelsCmd.AddCommand(modelsAddCmd)
	rootCmd.AddCommand(modelsCmd)

	// tools command
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE:  runToolsList,
	}
	rootCmd.AddCommand(toolsCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the benchmark dashboard",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringArrayVarP(&runModels, "model", "m", nil, "model to benchmark (repeatable)")
	rootCmd.AddCommand(tuiCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0755); err != nil {
		return nil, err
	}
	return store.New(cfg.General.DatabasePath)
}

// resolveModels maps catalog names or raw identifiers to catalog entries.
// Unknown identifiers pass through with the id doubling as display name.
func resolveModels(cat *catalog.Catalog, args []string) []catalog.Model {
	out := make([]catalog.Model, 0, len(args))
	for _, arg := range args {
		if m, ok := cat.Find(arg); ok {
			out = append(out, m)
			continue
		}
		out = append(out, catalog.Model{ID: arg, Name: arg})
	}
	return out
}

func loadImages(paths []string) ([]llm.ImageAttachment, error) {
	var out []llm.ImageAttachment
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading image %s: %w", path, err)
		}
		mime := "image/png"
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg":
			mime = "image/jpeg"
		case ".gif":
			mime = "image/gif"
		case ".webp":
			mime = "image/webp"
		}
		out = append(out, llm.ImageAttachment{Data: data, MIMEType: mime})
	}
	return out, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(runModels) == 0 {
		return fmt.Errorf("at least one --model is required")
	}

	client, err := llm.New(cfg.API.BaseURL)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := catalog.Load(cfg.General.ModelsPath)
	if err != nil {
		return err
	}

	runner := bench.NewRunner(bench.Options{
		Streamer:     client,
		Store:        st,
		Tools:        tools.Select(runTools),
		ModelTimeout: cfg.ModelTimeout(),
	})
	for _, m := range resolveModels(cat, runModels) {
		if _, err := runner.AddModel(m.ID, m.Name); err != nil {
			return err
		}
	}

	images, err := loadImages(runImages)
	if err != nil {
		return err
	}

	temperature := cfg.Benchmark.Temperature
	if runTemperature > 0 {
		temperature = runTemperature
	}
	maxTokens := cfg.Benchmark.MaxTokens
	if runMaxTokens > 0 {
		maxTokens = runMaxTokens
	}

	fmt.Printf("Benchmarking %d models...\n\n", len(runModels))
	runID, err := runner.Run(ctx, bench.RunOptions{
		Prompt: args[0],
		Images: images,
		Config: &domain.ModelConfig{Temperature: &temperature, MaxTokens: &maxTokens},
	})
	if err != nil {
		return err
	}

	printModels(runner.Models())
	fmt.Printf("\nRun #%d saved.\n", runID)

	if runEvaluate {
		engine := judge.NewEngine(client, st)
		result, err := engine.EvaluateRun(ctx, runID, judge.Options{JudgeModel: cfg.Judge.Model})
		if err != nil {
			return err
		}
		printEvaluation(result)
	}
	return nil
}

func printModels(models []domain.BenchmarkModel) {
	for _, m := range models {
		meta := string(m.Status)
		if d, ok := m.Duration(); ok {
			meta += ", " + d.Round(100*time.Millisecond).String()
		}
		if m.Usage != nil && m.Usage.OutputTokens != nil {
			meta += ", " + humanize.Comma(int64(*m.Usage.OutputTokens)) + " tokens"
		}
		fmt.Printf("=== %s (%s) ===\n", m.ModelName, meta)
		for _, tc := range m.ToolCalls {
			fmt.Printf("  ⚒ %s\n", tc.Name)
		}
		if m.Error != "" {
			fmt.Printf("error: %s\n", m.Error)
		}
		if text := m.Text(); text != "" {
			fmt.Println(text)
		}
		fmt.Println()
	}
}

func printEvaluation(result *judge.Result) {
	fmt.Println("=== Evaluation ===")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range result.Evaluations {
		fmt.Fprintf(w, "%.1f\t%s\t%s\n", e.OverallScore, e.ModelID, e.Reasoning)
	}
	w.Flush()
	if len(result.Ranking) > 0 {
		fmt.Printf("\nRanking: %s\n", strings.Join(result.Ranking, " > "))
	}
	if result.Summary != "" {
		fmt.Printf("Summary: %s\n", result.Summary)
	}
}

func runJudge(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := llm.New(cfg.API.BaseURL)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	judgeModel := judgeModelFlag
	if judgeModel == "" {
		judgeModel = cfg.Judge.Model
	}
	opts := judge.Options{JudgeModel: judgeModel}
	switch judgeCriteriaFlag {
	case "auto", "":
		// EvaluateRun picks from the prompt and recorded tool calls.
	case "default":
		opts.Criteria = judge.DefaultCriteria()
	case "coding":
		opts.Criteria = judge.CodingCriteria()
	default:
		return fmt.Errorf("unknown criteria set %q", judgeCriteriaFlag)
	}

	engine := judge.NewEngine(client, st)
	result, err := engine.EvaluateRun(cmd.Context(), runID, opts)
	if err != nil {
		return err
	}
	printEvaluation(result)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := llm.New(cfg.API.BaseURL)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	responses, err := st.GetResponsesForRun(runID)
	if err != nil {
		return err
	}

	var a, b *domain.ModelResponse
	for i := range responses {
		switch responses[i].ModelID {
		case args[1]:
			a = &responses[i]
		case args[2]:
			b = &responses[i]
		}
	}
	if a == nil || b == nil {
		return fmt.Errorf("run %d does not contain both %s and %s", runID, args[1], args[2])
	}

	judgeModel := judgeModelFlag
	if judgeModel == "" {
		judgeModel = cfg.Judge.Model
	}

	engine := judge.NewEngine(client, st)
	result, err := engine.PairwiseCompare(cmd.Context(), run.PromptText,
		judge.ModelOutput{ModelID: a.ModelID, ModelName: a.ModelName, Output: a.OutputText, ToolCalls: a.ToolCalls},
		judge.ModelOutput{ModelID: b.ModelID, ModelName: b.ModelName, Output: b.OutputText, ToolCalls: b.ToolCalls},
		judgeModel)
	if err != nil {
		return err
	}

	switch result.Winner {
	case judge.WinnerTie:
		fmt.Printf("TIE (confidence %.2f)\n", result.Confidence)
	case judge.WinnerA:
		fmt.Printf("Winner: %s (confidence %.2f)\n", a.ModelID, result.Confidence)
	case judge.WinnerB:
		fmt.Printf("Winner: %s (confidence %.2f)\n", b.ModelID, result.Confidence)
	}
	fmt.Println(result.Reasoning)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if historyLeaderboard {
		averages, err := st.ModelAverages()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "MODEL\tAVG SCORE\tEVALS")
		for _, a := range averages {
			fmt.Fprintf(w, "%s\t%.2f\t%d\n", a.ModelID, a.AvgScore, a.EvalCount)
		}
		return nil
	}

	runs, err := st.RecentRuns(historyLimit, 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tCREATED\tMODELS\tAVG SCORE\tPROMPT")
	for _, r := range runs {
		score := "-"
		if r.AvgScore != nil {
			score = fmt.Sprintf("%.1f", *r.AvgScore)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			r.ID, humanize.Time(r.CreatedAt), r.ModelCount, score, truncatePrompt(r.PromptText, 60))
	}
	return nil
}

func truncatePrompt(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func runShow(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	responses, err := st.GetResponsesForRun(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run #%d (%s)\n", run.ID, humanize.Time(run.CreatedAt))
	if len(run.ToolsEnabled) > 0 {
		fmt.Printf("Tools: %s\n", strings.Join(run.ToolsEnabled, ", "))
	}
	fmt.Printf("Prompt: %s\n\n", run.PromptText)

	for _, r := range responses {
		meta := string(r.Status)
		if r.DurationMS != nil {
			meta += fmt.Sprintf(", %dms", *r.DurationMS)
		}
		fmt.Printf("=== %s (%s) ===\n", r.ModelName, meta)
		if r.ErrorMessage != "" {
			fmt.Printf("error: %s\n", r.ErrorMessage)
		}
		if r.OutputText != "" {
			fmt.Println(r.OutputText)
		}
		fmt.Println()
	}

	eval, err := st.GetLatestEvaluationForRun(runID)
	if err == nil {
		fmt.Printf("=== Scores (judge: %s) ===\n", eval.JudgeModel)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, s := range eval.Scores {
			fmt.Fprintf(w, "%.1f\t%s\t%s\n", s.Score, s.ModelID, truncatePrompt(s.Reasoning, 80))
		}
		w.Flush()
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dir := exportOut
	if dir == "" {
		dir = cfg.General.ExportDir
	}

	path, err := export.New(st).ToFile(dir, runID, exportFormat)
	if err != nil {
		return err
	}
	fmt.Printf("Exported run %d to %s\n", runID, path)
	return nil
}

func runModelsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.General.ModelsPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME\tJUDGE")
	for _, m := range cat.Models {
		judgeMark := ""
		if m.Judge {
			judgeMark = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, judgeMark)
	}
	return nil
}

func runModelsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.General.ModelsPath)
	if err != nil {
		return err
	}
	if err := cat.Add(catalog.Model{ID: args[0], Name: args[1], Judge: modelsAddJudge}); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.General.ModelsPath), 0755); err != nil {
		return err
	}
	if err := cat.Save(cfg.General.ModelsPath); err != nil {
		return err
	}
	fmt.Printf("Added %s\n", args[0])
	return nil
}

func runToolsList(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, t := range tools.All() {
		fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(runModels) == 0 {
		return fmt.Errorf("at least one --model is required")
	}

	client, err := llm.New(cfg.API.BaseURL)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := catalog.Load(cfg.General.ModelsPath)
	if err != nil {
		return err
	}

	runner := bench.NewRunner(bench.Options{
		Streamer:     client,
		Store:        st,
		Tools:        tools.Select(runTools),
		ModelTimeout: cfg.ModelTimeout(),
	})
	for _, m := range resolveModels(cat, runModels) {
		if _, err := runner.AddModel(m.ID, m.Name); err != nil {
			return err
		}
	}

	model := tui.NewModel(tui.ModelConfig{
		Runner:     runner,
		Evaluator:  judge.NewEngine(client, st),
		Historian:  st,
		JudgeModel: cfg.Judge.Model,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
