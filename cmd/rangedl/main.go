package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgomes/rangedl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rc := loadRC()

	var (
		filename     string
		threadNum    int
		maxThreadNum int
		maxRetry     int
		threadRetry  int
		wish         int
		headers      []string
		resume       bool
		verbose      bool
		transient    bool
	)

	cmd := &cobra.Command{
		Use:   "rangedl <url>",
		Short: "Fetch a URL using adaptive range-partitioned parallel downloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			cfg := rangedl.Config{
				URL:                   args[0],
				File:                  filename,
				Header:                header,
				ThreadNum:             threadNum,
				MaxThreadNum:          maxThreadNum,
				MaxRetry:              maxRetry,
				MaxThreadRetry:        threadRetry,
				DesiredCompletionTime: wish,
				ContinueDownloadTest:  resume,
				RaiseErrors:           true,
				Log:                   verbose,
				ShowProgressBar:       true,
				Transient:             transient,
			}

			logger := newLogger(verbose)
			sink := newBarSink(transient)
			engine := rangedl.New(cfg, sink, logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			go func() {
				<-sigc
				fmt.Fprintln(os.Stderr, "\ncancelling download...")
				cancel()
			}()

			ok, err := engine.Run(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("download of %s did not complete", args[0])
			}

			fmt.Println("downloaded", engine.OutputPath())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filename, "filename", "f", "", "destination filename (default: derived from the URL or Content-Disposition)")
	flags.IntVarP(&threadNum, "threadnum", "n", rc.threadNum, "fixed worker count (<=0 derives one automatically)")
	flags.IntVarP(&maxThreadNum, "max", "m", rc.maxThreadNum, "cap on the auto-derived worker count")
	flags.IntVarP(&maxRetry, "retry", "r", rc.maxRetry, "probe retry budget (negative = infinite)")
	flags.IntVar(&threadRetry, "threadRetry", rc.maxThreadRetry, "per-worker retry budget (negative = infinite)")
	flags.StringArrayVarP(&headers, "header", "H", nil, "extra request header as key=value (repeatable)")
	flags.IntVarP(&wish, "wish", "w", rc.desiredCompletionTime, "desired completion time in seconds")
	flags.BoolVar(&resume, "resume", false, "resume by appending to an existing output file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable logging")
	flags.BoolVar(&transient, "transient", false, "clear the progress bar on completion")

	return cmd
}

func parseHeaders(raw []string) (http.Header, error) {
	h := http.Header{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid header %q, expected key=value", kv)
		}
		h.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return h, nil
}
