package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frankli0324/go-httb/internal/body"
	"github.com/frankli0324/go-httb/internal/model"
)

type getFlags struct {
	method   string
	headers  []string
	data     string
	form     []string
	jsonPath string
	include  bool
	progress bool
	async    bool
}

func newGetCommand(a *app) *cobra.Command {
	var f getFlags
	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Execute one request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var resp *model.Response
			if f.async {
				var onProgress func(loaded, total uint64, fraction float64)
				if f.progress {
					onProgress = func(loaded, total uint64, fraction float64) {
						a.log.Info().Uint64("loaded", loaded).Uint64("total", total).
							Float64("fraction", fraction).Msg("progress")
					}
				}
				a.client.Execute(ctx, req, func(r *model.Response) { resp = r }, onProgress)
			} else {
				resp = a.client.ExecuteBlocking(ctx, req)
			}
			if err := f.print(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if resp.IsInternalError() {
				return fmt.Errorf("request failed: %s", resp.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.method, "method", "X", model.MethodGet, "request method")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "request header, \"Name: value\"")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&f.form, "form", "F", nil, "url-encoded form field, name=value")
	cmd.Flags().StringVar(&f.jsonPath, "json", "", "print only this path of a JSON response body")
	cmd.Flags().BoolVarP(&f.include, "include", "i", false, "print the status line and headers")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "log download progress, implies --async")
	cmd.Flags().BoolVar(&f.async, "async", false, "run on a reactor instead of the calling goroutine")
	return cmd
}

func (f *getFlags) request(rawURL string) (*model.Request, error) {
	req := model.NewRequestWithMethod(rawURL, strings.ToUpper(f.method))
	if req.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q", h)
		}
		req.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	switch {
	case len(f.form) > 0 && f.data != "":
		return nil, fmt.Errorf("--data and --form are mutually exclusive")
	case len(f.form) > 0:
		form := new(body.Form)
		for _, kv := range f.form {
			k, v, _ := strings.Cut(kv, "=")
			form.Add(k, v)
		}
		if err := req.SetBodyFrom(form); err != nil {
			return nil, err
		}
	case f.data != "":
		if err := req.SetBodyFrom(body.String(f.data)); err != nil {
			return nil, err
		}
	}
	if f.progress {
		f.async = true
	}
	return req, nil
}

func (f *getFlags) print(w io.Writer, resp *model.Response) error {
	if f.include {
		if _, err := fmt.Fprintf(w, "%s\n", resp.StatusLine()); err != nil {
			return err
		}
		for _, line := range resp.Header.Lines() {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	if f.jsonPath != "" {
		_, err := fmt.Fprintln(w, resp.JSON(f.jsonPath).String())
		return err
	}
	_, err := w.Write(resp.Body)
	return err
}
