package cmd

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/zalepa/vacstat/report"
	"github.com/zalepa/vacstat/stats"
)

//go:embed web.html
var htmlContent embed.FS

type statisticsResponse struct {
	Profession string      `json:"profession"`
	Headers    []string    `json:"headers"`
	Rows       []stats.Row `json:"rows"`
}

type webOptions struct {
	dataset    string
	profession string
	rates      string
	port       string
	config     string
}

// Web implements the "web" subcommand.
func Web(args []string) {
	var o webOptions
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	fs.StringVar(&o.profession, "profession", "", "profession name to filter by (prompted when omitted)")
	fs.StringVar(&o.rates, "rates", "", "exchange rate CSV (default from config)")
	fs.StringVar(&o.port, "port", "8080", "HTTP server port")
	fs.StringVar(&o.config, "config", "", "configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vacstat web <dataset.csv> [-profession name] [-port 8080]\n\nServe the statistics as a web page.\n\nFlags:\n")
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
	if err := runWeb(ctx, o, os.Stdin, os.Stderr); err != nil {
		fail(err)
	}
}

func runWeb(ctx context.Context, o webOptions, stdin io.Reader, stderr io.Writer) error {
	s, err := newSession(o.config, "web")
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
		Workers:    s.cfg.Workers,
		Sort:       s.cfg.Partitions.Sort,
	}
	res, err := stats.NewPipeline(opts, n, s.logger.Named("pipeline")).Run(ctx, o.dataset)
	if err != nil {
		return err
	}
	printSummary(stderr, res)
	if res.Statistics.Empty() {
		fmt.Fprintf(stderr, "warning: no years with salary data in %s, starting with empty data\n", o.dataset)
	}

	handler, err := newWebHandler(res.Statistics, s.logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + o.port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	fmt.Fprintf(stderr, "serving on http://localhost%s\n", srv.Addr)

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newWebHandler serves the page, the statistics as JSON and the chart. The
// chart is rendered once up front.
func newWebHandler(st stats.Statistics, logger *zap.Logger) (http.Handler, error) {
	statsJSON, err := json.Marshal(statisticsResponse{
		Profession: st.Profession,
		Headers:    report.Headers(st.Profession),
		Rows:       st.Rows(),
	})
	if err != nil {
		return nil, err
	}

	var chart []byte
	if !st.Empty() {
		var buf bytes.Buffer
		if err := report.WritePNG(&buf, st); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
		chart = buf.Bytes()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := htmlContent.ReadFile("web.html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})

	mux.HandleFunc("GET /api/statistics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(statsJSON)
	})

	mux.HandleFunc("GET /chart.png", func(w http.ResponseWriter, r *http.Request) {
		if chart == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(chart)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		mux.ServeHTTP(w, r)
	}), nil
}
