package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/zalepa/vacstat/currency"
	"github.com/zalepa/vacstat/stats"
	"github.com/zalepa/vacstat/vacancy"
)

type ratesOptions struct {
	dataset  string
	out      string
	url      string
	minCount int
	config   string
}

// Rates implements the "rates" subcommand: download monthly exchange rates
// for the currencies a dataset uses often enough and save them as a CSV
// table.
func Rates(args []string) {
	var o ratesOptions
	fs := flag.NewFlagSet("rates", flag.ExitOnError)
	fs.StringVar(&o.out, "out", "", "output rates CSV (default from config)")
	fs.StringVar(&o.url, "url", "", "daily quotes URL format taking month and year (default from config)")
	fs.IntVar(&o.minCount, "min-count", -1, "only fetch currencies used by more than this many vacancies (default from config)")
	fs.StringVar(&o.config, "config", "", "configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: vacstat rates <dataset.csv> [flags]

Fetch the Central Bank of Russia monthly quotes covering the dataset's
publication dates and write them as an exchange rate table.

Flags:
`)
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(fs, args))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	o.dataset = fs.Arg(0)

	ctx, cancel := signalContext()
	defer cancel()
	if err := runRates(ctx, o, os.Stdout, os.Stderr); err != nil {
		fail(err)
	}
}

func runRates(ctx context.Context, o ratesOptions, stdout, stderr io.Writer) error {
	s, err := newSession(o.config, "rates")
	if err != nil {
		return err
	}
	defer s.close()

	out := firstNonEmpty(o.out, s.cfg.Rates.File)
	minCount := s.cfg.Rates.MinCount
	if o.minCount >= 0 {
		minCount = o.minCount
	}

	h, rows, err := vacancy.ReadFile(o.dataset)
	if err != nil {
		return err
	}
	decoded := stats.DecodeRows(h, rows)
	usage := currency.UsageOf(decoded.Records)
	if usage.Empty() {
		return fmt.Errorf("%s: no valid vacancies", o.dataset)
	}

	if err := printUsage(stdout, usage, minCount, s.cfg.BaseCurrency); err != nil {
		return err
	}

	var codes []string
	for _, code := range currency.SelectCurrencies(usage.Counts, minCount) {
		if code != s.cfg.BaseCurrency {
			codes = append(codes, code)
		}
	}
	months := currency.Span(usage.First, usage.Last)
	s.logger.Info("fetching exchange rates",
		zap.Strings("currencies", codes),
		zap.String("from", usage.First.String()),
		zap.String("to", usage.Last.String()),
		zap.Int("months", len(months)))

	tbl := currency.NewTable(s.cfg.BaseCurrency)
	if len(codes) > 0 {
		fetcher := currency.NewFetcher(firstNonEmpty(o.url, s.cfg.Rates.URL), s.cfg.Rates.RequestsPerSecond, s.cfg.Rates.Retries, s.logger.Named("cbr"))
		bar := pb.New(len(months)).SetWriter(stderr).Start()
		err := fetcher.Fill(ctx, tbl, usage.First, usage.Last, codes, func() { bar.Increment() })
		bar.Finish()
		if err != nil {
			return err
		}
	}

	if err := tbl.SaveFile(out); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s (%d months, %d currencies)\n", out, len(months), len(codes))
	return nil
}

// printUsage lists every currency of the dataset, most used first, and marks
// the ones that will be fetched.
func printUsage(w io.Writer, u currency.Usage, minCount int, base string) error {
	codes := make([]string, 0, len(u.Counts))
	for code := range u.Counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if u.Counts[codes[i]] != u.Counts[codes[j]] {
			return u.Counts[codes[i]] > u.Counts[codes[j]]
		}
		return codes[i] < codes[j]
	})

	data := pterm.TableData{{"Currency", "Vacancies", "Fetched"}}
	for _, code := range codes {
		fetched := "no"
		switch {
		case code == base:
			fetched = "base"
		case u.Counts[code] > minCount:
			fetched = "yes"
		}
		data = append(data, []string{code, humanize.Comma(int64(u.Counts[code])), fetched})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, table)
	return err
}
