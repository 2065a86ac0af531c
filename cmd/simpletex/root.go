package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/simpletex/internal/cloud"
	"github.com/knowledge-engine/simpletex/internal/config"
	"github.com/knowledge-engine/simpletex/internal/engine"
	"github.com/knowledge-engine/simpletex/internal/keyword"
	"github.com/knowledge-engine/simpletex/internal/logging"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

type options struct {
	file      string
	url       string
	html      bool
	top       int
	stopWords string
	stem      bool
	idf       string
	norm      string
	sublinear bool
	cloudPath string
	termCloud bool
	json      bool
	logLevel  string
	reference string
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "simpletex [text...]",
		Short: "Extract the top keywords from a block of text",
		Long: `simpletex ranks the words of a single document by TF-IDF weight
(smooth IDF, L2-normalized term frequency) after removing English stop-words.

Text is taken from the arguments, --file, --url, or standard input.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "read text from a file")
	flags.StringVarP(&opts.url, "url", "u", "", "fetch a web page and score its text")
	flags.BoolVar(&opts.html, "html", false, "treat the input as HTML")
	flags.IntVarP(&opts.top, "top", "n", 0, "number of keywords to return (default from SCORER_TOP_N)")
	flags.BoolVar(&opts.stem, "stem", false, "reduce terms to their English stem")
	flags.StringVar(&opts.idf, "idf", "", "idf mode: smooth, plain or classic")
	flags.StringVar(&opts.norm, "norm", "", "normalization: l2, l1 or none")
	flags.BoolVar(&opts.sublinear, "sublinear", false, "use 1 + ln(tf) instead of raw counts")
	flags.StringVar(&opts.cloudPath, "cloud", "", "write an SVG word cloud to this file")
	flags.BoolVar(&opts.termCloud, "term-cloud", false, "print a word cloud to the terminal")
	flags.BoolVar(&opts.json, "json", false, "print the result as JSON")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&opts.stopWords, "stopwords", "", "extra stop-word file (.txt or .yaml)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	cmd.AddCommand(newStopWordsCommand(opts))
	cmd.AddCommand(newEvalCommand(opts))
	return cmd
}

func newStopWordsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stopwords",
		Short: "List the active stop-words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd, opts)
			scorer, err := engine.NewScorer(cfg.Scorer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range scorer.StopWords().Words() {
				fmt.Fprintln(out, w)
			}
			return nil
		},
	}
}

func newEvalCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval --reference FILE [text...]",
		Short: "Score extracted keywords against a reference list",
		Long: `eval extracts keywords exactly as the root command does and compares them
with a hand-picked reference list (one or more terms per line, '#' comments),
reporting true/false positives, false negatives, precision, recall and F1.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.reference, "reference", "r", "", "file of expected keywords")
	flags.StringVarP(&opts.file, "file", "f", "", "read text from a file")
	flags.StringVarP(&opts.url, "url", "u", "", "fetch a web page and score its text")
	flags.BoolVar(&opts.html, "html", false, "treat the input as HTML")
	flags.IntVarP(&opts.top, "top", "n", 0, "number of keywords to return (default from SCORER_TOP_N)")
	flags.BoolVar(&opts.json, "json", false, "print the report as JSON")
	cmd.MarkFlagRequired("reference")
	return cmd
}

type evalReport struct {
	keyword.Evaluation
	Keywords   []keyword.Keyword `json:"keywords"`
	DurationMS float64           `json:"duration_ms"`
}

func runEval(cmd *cobra.Command, opts *options, args []string) error {
	reference, err := keyword.LoadTerms(opts.reference)
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd, opts)
	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())
	eng, err := engine.NewEngine(cfg, logger.WithField("component", "cli"), nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res, err := extract(ctx, cmd, eng, opts, args)
	if err != nil {
		return err
	}
	took := time.Since(start)

	report := evalReport{
		Evaluation: keyword.Evaluate(reference, keyword.Keywords(res.Keywords).Terms()),
		Keywords:   res.Keywords,
		DurationMS: float64(took.Microseconds()) / 1000,
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	}

	ev := report.Evaluation
	fmt.Fprintf(out, "precision %.4f  recall %.4f  f1 %.4f\n", ev.Precision, ev.Recall, ev.F1)
	fmt.Fprintf(out, "tp %d  fp %d  fn %d\n", ev.TruePositives, ev.FalsePositives, ev.FalseNegatives)
	fmt.Fprintf(out, "%s %s\n", green("matched:"), strings.Join(ev.Matched, " "))
	fmt.Fprintf(out, "%s %s\n", yellow("extra:  "), strings.Join(ev.Extra, " "))
	fmt.Fprintf(out, "%s %s\n", yellow("missed: "), strings.Join(ev.Missed, " "))
	fmt.Fprintln(out, gray(fmt.Sprintf("scored in %s", took.Round(time.Microsecond))))
	return nil
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *options) *config.Config {
	cfg := config.Load()
	flags := cmd.Flags()

	if flags.Changed("top") {
		cfg.Scorer.TopN = opts.top
	}
	if flags.Changed("stem") {
		cfg.Scorer.Stem = opts.stem
	}
	if flags.Changed("idf") {
		cfg.Scorer.IDF = opts.idf
	}
	if flags.Changed("norm") {
		cfg.Scorer.Norm = opts.norm
	}
	if flags.Changed("sublinear") {
		cfg.Scorer.SublinearTF = opts.sublinear
	}
	if flags.Changed("stopwords") {
		cfg.Scorer.StopWordsFile = opts.stopWords
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	// One-shot runs never repeat a document.
	cfg.Cache.Size = 0
	return cfg
}

func runExtract(cmd *cobra.Command, opts *options, args []string) error {
	cfg := loadConfig(cmd, opts)
	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())
	entry := logger.WithField("component", "cli")

	eng, err := engine.NewEngine(cfg, entry, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := extract(ctx, cmd, eng, opts, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		printKeywords(out, res)
	}

	if opts.cloudPath != "" {
		if err := writeCloud(cmd, eng, opts.cloudPath, res.Keywords, entry); err != nil {
			return err
		}
	}
	if opts.termCloud {
		printTermCloud(cmd, res.Keywords)
	}
	return nil
}

func extract(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, opts *options, args []string) (*engine.Result, error) {
	if opts.url != "" {
		return eng.ExtractURL(ctx, opts.url)
	}

	var (
		text   string
		isHTML = opts.html
	)
	switch {
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		text = string(data)
		switch strings.ToLower(filepath.Ext(opts.file)) {
		case ".html", ".htm":
			isHTML = true
		}
	case len(args) > 0:
		text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	if isHTML {
		return eng.ExtractHTML(ctx, text)
	}
	return eng.Extract(ctx, text)
}

func printKeywords(w io.Writer, res *engine.Result) {
	if res.Title != "" {
		fmt.Fprintln(w, bold(res.Title))
	}
	if len(res.Keywords) == 0 {
		fmt.Fprintln(w, gray("No keywords found."))
		return
	}
	width := 0
	for _, kw := range res.Keywords {
		if len(kw.Term) > width {
			width = len(kw.Term)
		}
	}
	for i, kw := range res.Keywords {
		fmt.Fprintf(w, "%2d. %s %s\n", i+1, green(fmt.Sprintf("%-*s", width, kw.Term)), gray(fmt.Sprintf("%.4f", kw.Weight)))
	}
}

func writeCloud(cmd *cobra.Command, eng *engine.Engine, path string, kws []keyword.Keyword, log *logrus.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cloud file: %w", err)
	}
	notice, renderErr := eng.RenderCloud(f, kws)
	if err := f.Close(); err != nil && renderErr == nil {
		renderErr = fmt.Errorf("failed to close cloud file: %w", err)
	}
	if renderErr != nil {
		return renderErr
	}
	if notice != "" {
		os.Remove(path)
		fmt.Fprintln(cmd.ErrOrStderr(), yellow(notice))
		return nil
	}
	log.WithField("path", path).Debug("Wrote word cloud")
	return nil
}

func printTermCloud(cmd *cobra.Command, kws []keyword.Keyword) {
	r := cloud.NewTermRenderer(os.Stdout)
	if err := r.Available(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), yellow(err.Error()))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if err := r.Render(cmd.OutOrStdout(), keyword.Keywords(kws).Map()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), yellow(err.Error()))
	}
}
