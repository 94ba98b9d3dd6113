package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/zalepa/vacstat/report"
	"github.com/zalepa/vacstat/stats"
)

type statsOptions struct {
	dataset    string
	profession string
	rates      string
	dir        string
	xlsx       string
	png        string
	pdf        string
	workers    int
	noSort     bool
	config     string
}

// Stats implements the "stats" subcommand: compute salary and vacancy
// statistics by year for all postings and for one profession, then render
// them.
func Stats(args []string) {
	var o statsOptions
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.StringVar(&o.profession, "profession", "", "profession name to filter by (prompted when omitted)")
	fs.StringVar(&o.rates, "rates", "", "exchange rate CSV (default from config)")
	fs.StringVar(&o.dir, "dir", "", "keep per-year partition files in this directory")
	fs.StringVar(&o.xlsx, "xlsx", "", "output spreadsheet path (default from config)")
	fs.StringVar(&o.png, "png", "", "output chart image path (default from config)")
	fs.StringVar(&o.pdf, "pdf", "", "output PDF report path (default from config)")
	fs.IntVar(&o.workers, "workers", 0, "partitions aggregated at once (default GOMAXPROCS)")
	fs.BoolVar(&o.noSort, "no-sort", false, "fail on unsorted input instead of sorting it")
	fs.StringVar(&o.config, "config", "", "configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: vacstat stats <dataset.csv> [flags]

Compute average salary and vacancy counts by year, overall and for one
profession, and write a spreadsheet, a chart image and a PDF report.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  vacstat stats vacancies.csv -profession Programmer
  vacstat stats vacancies.csv -profession Analyst -rates rates.csv -pdf analyst.pdf
`)
	}
	fs.Parse(reorderArgs(fs, args))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	o.dataset = fs.Arg(0)

	ctx, cancel := signalContext()
	defer cancel()
	if err := runStats(ctx, o, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fail(err)
	}
}

func runStats(ctx context.Context, o statsOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	s, err := newSession(o.config, "stats")
	if err != nil {
		return err
	}
	defer s.close()

	if o.profession == "" {
		if o.profession, err = promptProfession(stdin, stderr); err != nil {
			return err
		}
	}

	n, err := s.normalizer(firstNonEmpty(o.rates, s.cfg.Rates.File), o.rates != "")
	if err != nil {
		return err
	}

	opts := stats.Options{
		Profession: o.profession,
		Dir:        firstNonEmpty(o.dir, s.cfg.Partitions.Dir),
		Workers:    s.cfg.Workers,
		Sort:       s.cfg.Partitions.Sort && !o.noSort,
	}
	if o.workers > 0 {
		opts.Workers = o.workers
	}

	res, err := stats.NewPipeline(opts, n, s.logger.Named("pipeline")).Run(ctx, o.dataset)
	if err != nil {
		return err
	}
	printSummary(stderr, res)

	if res.Statistics.Empty() {
		fmt.Fprintln(stderr, "no years with salary data; nothing to render")
		return nil
	}

	if err := report.WriteSeries(stdout, res.Statistics); err != nil {
		return err
	}
	table, err := report.Table(res.Statistics)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, table)

	outputs := []struct {
		path  string
		write func(string) error
	}{
		{firstNonEmpty(o.xlsx, s.cfg.Output.XLSX), func(p string) error { return report.SaveXLSX(p, res.Statistics) }},
		{firstNonEmpty(o.png, s.cfg.Output.PNG), func(p string) error { return report.SavePNG(p, res.Statistics) }},
		{firstNonEmpty(o.pdf, s.cfg.Output.PDF), func(p string) error {
			return report.WritePDF(p, res.Statistics, report.Meta{RunID: s.runID, Dataset: o.dataset})
		}},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := out.write(out.path); err != nil {
			return fmt.Errorf("write %s: %w", out.path, err)
		}
		s.logger.Info("report written", zap.String("file", out.path))
		fmt.Fprintf(stderr, "wrote %s\n", out.path)
	}
	return nil
}

func printSummary(w io.Writer, res stats.Result) {
	fmt.Fprintf(w, "%s rows, %d years, %s malformed, %s without exchange rate (%s)\n",
		humanize.Comma(int64(res.Rows)),
		len(res.Statistics.Salary),
		humanize.Comma(int64(res.Malformed)),
		humanize.Comma(int64(res.Unresolved)),
		res.Elapsed.Round(time.Millisecond))
}
