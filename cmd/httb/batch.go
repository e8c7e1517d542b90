package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/body"
	"github.com/frankli0324/go-httb/internal/model"
)

// batchFile is the TOML layout of a batch:
//
//	[[request]]
//	url = "http://example.com/post"
//	method = "POST"
//	body = "payload"
//	[request.headers]
//	X-Token = "abc"
type batchFile struct {
	Requests []batchEntry `toml:"request"`
}

type batchEntry struct {
	URL     string            `toml:"url"`
	Method  string            `toml:"method"`
	Headers map[string]string `toml:"headers"`
	Body    string            `toml:"body"`
	Form    map[string]string `toml:"form"`
}

func loadBatchFile(path string) ([]*model.Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf batchFile
	if err := toml.Unmarshal(b, &bf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	reqs := make([]*model.Request, 0, len(bf.Requests))
	for i, e := range bf.Requests {
		req, err := e.request()
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (e batchEntry) request() (*model.Request, error) {
	method := strings.ToUpper(e.Method)
	if method == "" {
		method = model.MethodGet
	}
	req := model.NewRequestWithMethod(e.URL, method)
	if req.Host == "" {
		return nil, fmt.Errorf("invalid url %q", e.URL)
	}
	req.Header.AddMap(e.Headers)
	switch {
	case len(e.Form) > 0 && e.Body != "":
		return nil, errors.New("body and form are mutually exclusive")
	case len(e.Form) > 0:
		if err := req.SetBodyFrom(new(body.Form).AddMap(e.Form)); err != nil {
			return nil, err
		}
	case e.Body != "":
		req.SetBodyString(e.Body)
	}
	return req, nil
}

func newBatchCommand(a *app) *cobra.Command {
	var (
		printBody   bool
		collect     bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Execute every request of a TOML file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadBatchFile(args[0])
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error().Err(err).Msg("metrics server")
					}
				}()
				defer srv.Shutdown(context.Background())
			}

			batch := internal.NewBatch(a.client, a.cfg.Concurrency).
				SetRateLimit(a.cfg.RateLimit).
				Add(reqs...)
			a.log.Info().Int("requests", batch.Len()).Int("concurrency", a.cfg.Concurrency).Msg("starting batch")

			start := time.Now()
			var failed int
			out := cmd.OutOrStdout()
			report := func(resp *model.Response) {
				if !resp.Success() {
					failed++
				}
				printSummary(out, resp, printBody)
			}
			if collect {
				err = batch.RunAll(cmd.Context(), func(all []*model.Response) {
					for _, resp := range all {
						report(resp)
					}
				})
			} else {
				err = batch.RunEach(cmd.Context(), report)
			}
			if err != nil {
				return err
			}
			a.log.Info().Int("requests", len(reqs)).Int("failed", failed).
				Dur("elapsed", time.Since(start)).Msg("batch done")
			return nil
		},
	}
	cmd.Flags().IntVarP(&a.cfg.Concurrency, "concurrency", "c", a.cfg.Concurrency, "requests in flight at once")
	cmd.Flags().Float64Var(&a.cfg.RateLimit, "rate", a.cfg.RateLimit, "maximum requests started per second, 0 is unlimited")
	cmd.Flags().BoolVar(&printBody, "body", false, "print response bodies")
	cmd.Flags().BoolVar(&collect, "collect", false, "print every response at once after the last one completed")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	return cmd
}

func printSummary(w io.Writer, resp *model.Response, withBody bool) {
	if resp.IsInternalError() {
		fmt.Fprintf(w, "%d %s\n", resp.Code, resp.String())
		return
	}
	fmt.Fprintf(w, "%d %s %d bytes\n", resp.Code, resp.Status, len(resp.Body))
	if withBody {
		fmt.Fprintf(w, "%s\n", resp.Body)
	}
}
