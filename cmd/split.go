package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/zalepa/vacstat/stats"
	"github.com/zalepa/vacstat/vacancy"
)

// Split implements the "split" subcommand: write one CSV file per
// publication year.
func Split(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	dir := fs.String("dir", "", "output directory (default <dataset>_by_year)")
	configPath := fs.String("config", "", "configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vacstat split <dataset.csv> [-dir path]\n\nWrite the dataset's vacancies into one CSV file per year.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(fs, args))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	if err := runSplit(fs.Arg(0), *dir, *configPath, os.Stderr); err != nil {
		fail(err)
	}
}

func runSplit(dataset, dir, configPath string, out io.Writer) error {
	s, err := newSession(configPath, "split")
	if err != nil {
		return err
	}
	defer s.close()

	dir = firstNonEmpty(dir, s.cfg.Partitions.Dir, datasetBase(dataset)+"_by_year")

	h, rows, err := vacancy.ReadFile(dataset)
	if err != nil {
		return err
	}
	parts, malformed, err := stats.PartitionRows(h, rows, s.cfg.Partitions.Sort)
	if err != nil {
		return err
	}
	if malformed > 0 {
		s.logger.Warn("dropped malformed rows", zap.Int("count", malformed))
	}

	files, err := stats.WritePartitions(dir, dataset, h, parts)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(out, "%d: %s vacancies -> %s\n", f.Year, humanize.Comma(int64(f.Count)), f.Path)
	}
	fmt.Fprintf(out, "Done: %d files, %s rows dropped\n", len(files), humanize.Comma(int64(malformed)))
	return nil
}
