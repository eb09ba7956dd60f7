package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/rivulet-dev/rivulet/pkg/hub"
	"github.com/rivulet-dev/rivulet/pkg/journal"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		topics     []string
		journalDir string
		s3Bucket   string
		s3Prefix   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stream hub server",
		Long: `Start the WebSocket stream hub.

Each --topic flag registers a hot stream that clients can attach to
at /ws/{topic}. Values published by any client fan out to all
clients on the topic. With --journal-dir or --s3-bucket, every
event on every topic is also appended to an NDJSON journal.

Examples:
  rivulet serve --topic ticks --topic alerts
  rivulet serve --addr :9000 --topic ticks --journal-dir ./journal
  rivulet serve --topic ticks --s3-bucket my-bucket --s3-prefix streams/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, topics, journalDir, s3Bucket, s3Prefix)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().StringSliceVarP(&topics, "topic", "t", nil, "Topic to register (repeatable)")
	cmd.Flags().StringVar(&journalDir, "journal-dir", "", "Directory for NDJSON journals, one file per topic")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket for NDJSON journals")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "journal/", "Key prefix for S3 journal objects")

	return cmd
}

func runServe(ctx context.Context, addr string, topics []string, journalDir, s3Bucket, s3Prefix string) error {
	if len(topics) == 0 {
		return fmt.Errorf("at least one --topic is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := hub.DefaultConfig()
	cfg.Logger = logger
	h := hub.New(cfg)

	// Sinks must outlive the hub: closing the hub pushes the terminal
	// events whose flush drains the journal buffers.
	var sinks []journal.Sink
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Error("close journal sink", "error", err)
			}
		}
	}()
	defer h.Close()

	var s3Sink *journal.S3Sink
	if s3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		s3Sink = journal.NewS3Sink(s3.NewFromConfig(awsCfg), s3Bucket, s3Prefix)
		sinks = append(sinks, s3Sink)
	}

	for _, name := range topics {
		topic, err := h.Register(name)
		if err != nil {
			return err
		}

		if journalDir != "" {
			sink, err := journal.NewDiskSink(filepath.Join(journalDir, name+".ndjson"))
			if err != nil {
				return fmt.Errorf("open journal for %s: %w", name, err)
			}
			sinks = append(sinks, sink)
			journal.Attach(topic.Stream(), name, sink, journal.WithLogger(logger))
		}
		if s3Sink != nil {
			journal.Attach(topic.Stream(), name, s3Sink, journal.WithLogger(logger))
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("hub listening", "addr", addr, "topics", topics)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	printBanner()
	info("serving %d topic(s) on %s", len(topics), addr)
	for _, name := range topics {
		info("ws://%s/ws/%s", displayAddr(addr), name)
	}
	fmt.Println()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// displayAddr turns a bind address like ":8080" into something
// clients can paste.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
