package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/zalepa/vacstat/currency"
	"github.com/zalepa/vacstat/internal/config"
	"github.com/zalepa/vacstat/internal/logging"
)

// session is the configuration and logger shared by one subcommand run.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string
	stop   func()
}

func newSession(configPath, command string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	runID := logging.NewRunID()
	logger, stop, err := logging.New(cfg.Log, runID)
	if err != nil {
		return nil, err
	}
	logger = logger.Named(command)
	logger.Debug("configuration loaded", zap.String("base_currency", cfg.BaseCurrency), zap.String("missing_rates", cfg.Rates.Missing))
	return &session{cfg: cfg, logger: logger, runID: runID, stop: stop}, nil
}

func (s *session) close() {
	s.stop()
}

// normalizer loads the rate table at path. A missing file is only an error
// when the user named it; otherwise only the base currency converts.
func (s *session) normalizer(path string, explicit bool) (*currency.Normalizer, error) {
	tbl, err := currency.LoadFile(path, s.cfg.BaseCurrency)
	switch {
	case err == nil:
		s.logger.Info("exchange rates loaded", zap.String("file", path), zap.Int("entries", tbl.Len()))
	case errors.Is(err, os.ErrNotExist) && !explicit:
		s.logger.Warn("no exchange rate table, only base currency salaries convert",
			zap.String("file", path), zap.String("base", s.cfg.BaseCurrency))
		tbl = currency.NewTable(s.cfg.BaseCurrency)
	default:
		return nil, err
	}
	n := currency.NewNormalizer(tbl, s.cfg.Policy())
	n.SingleBound = s.cfg.SingleBound()
	return n, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// reorderArgs moves positional arguments after the flags, since the flag
// package stops parsing at the first non-flag argument. Boolean flags of fs
// never consume the following argument.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !strings.Contains(args[i], "=") && !isBoolFlag(fs, args[i]) {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(fs *flag.FlagSet, arg string) bool {
	f := fs.Lookup(strings.TrimLeft(arg, "-"))
	if f == nil {
		return false
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// promptProfession asks for the profession on out and reads one line from in.
func promptProfession(in io.Reader, out io.Writer) (string, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter profession name: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no profession given")
		}
		if answer := strings.TrimSpace(scanner.Text()); answer != "" {
			return answer, nil
		}
	}
}

func datasetBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
