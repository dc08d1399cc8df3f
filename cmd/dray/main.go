// Command dray runs the SFTP-over-SSH server: it loads configuration from
// the environment, stands up the S3-compatible backend, and serves
// connections until interrupted.
//
// Grounded on marmos91-dittofs's cmd/dittofs/main.go and
// cmd/dittofs/commands/start.go: a cobra root command whose RunE loads
// config, builds the logger and tracer, launches the server on its own
// goroutine, and blocks on a signal channel for graceful shutdown. Scaled
// down from dittofs's many subcommands (init/start/user/group/...) to the
// one thing this server does: serve.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tnewman/dray/internal/config"
	"github.com/tnewman/dray/internal/logging"
	"github.com/tnewman/dray/internal/objectstore"
	"github.com/tnewman/dray/internal/sshhost"
	"github.com/tnewman/dray/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "dray",
	Short: "dray serves SFTP v3 over SSH, backed by an S3-compatible object store",
	Long: `dray is an SFTP subsystem server that speaks protocol version 3 over
an SSH transport and stores every file as an object in an S3-compatible
bucket rather than on a local filesystem.

All configuration is read from DRAY_-prefixed environment variables; see
the DRAY_HOST, DRAY_SSH_KEY_PATHS, and DRAY_S3_BUCKET settings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Init()
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	s3Client, err := objectstore.NewClient(ctx, cfg.S3)
	if err != nil {
		return errors.Wrap(err, "build s3 client")
	}

	store := objectstore.NewAdapter(s3Client, cfg.S3.Bucket, cfg.MaxHandles)
	if err := store.EnsureBucket(ctx); err != nil {
		return errors.Wrap(err, "ensure bucket")
	}

	host, err := sshhost.New(ctx, store, cfg.SSHKeyPaths, log)
	if err != nil {
		return errors.Wrap(err, "build ssh host")
	}

	listener, err := net.Listen("tcp", cfg.Host)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Host)
	}

	log.WithField("addr", cfg.Host).Info("listening")

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- host.Serve(ctx, listener)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		signal.Stop(sigCh)
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		return <-serveDone

	case err := <-serveDone:
		signal.Stop(sigCh)
		return err
	}
}
