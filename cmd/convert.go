package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/zalepa/vacstat/stats"
	"github.com/zalepa/vacstat/vacancy"
)

type convertOptions struct {
	dataset string
	rates   string
	out     string
	limit   int
	config  string
}

// Convert implements the "convert" subcommand: write the dataset with each
// salary fork replaced by one salary in the base currency.
func Convert(args []string) {
	var o convertOptions
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	fs.StringVar(&o.rates, "rates", "", "exchange rate CSV (default from config)")
	fs.StringVar(&o.out, "out", "", "output CSV (default <dataset>_converted.csv)")
	fs.IntVar(&o.limit, "limit", 100, "maximum rows to write, 0 for all")
	fs.StringVar(&o.config, "config", "", "configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vacstat convert <dataset.csv> [-rates rates.csv] [-out converted.csv] [-limit 100]\n\nConvert salaries to the base currency.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(fs, args))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	o.dataset = fs.Arg(0)

	if err := runConvert(o, os.Stderr); err != nil {
		fail(err)
	}
}

func runConvert(o convertOptions, stderr io.Writer) error {
	s, err := newSession(o.config, "convert")
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.normalizer(firstNonEmpty(o.rates, s.cfg.Rates.File), o.rates != "")
	if err != nil {
		return err
	}

	h, rows, err := vacancy.ReadFile(o.dataset)
	if err != nil {
		return err
	}
	decoded := stats.DecodeRows(h, rows)
	if decoded.Malformed > 0 {
		s.logger.Warn("dropped malformed rows", zap.Int("count", decoded.Malformed))
	}

	out := firstNonEmpty(o.out, datasetBase(o.dataset)+"_converted.csv")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	c, err := stats.WriteConverted(f, h, decoded.Records, n, o.limit)
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s (%d rows, %d without salary in %s)\n", out, c.Written, c.Dropped, n.Base)
	return nil
}
