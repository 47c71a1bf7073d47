package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalFlags struct {
	rpConfig string
	debug    bool
	timeout  time.Duration
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "rustplus",
		Short: "Rust+ companion client and team-chat bot",
		Long: `rustplus talks to a Rust game server over the Rust+ companion protocol.

Run the team-chat bot, or use one-shot commands to send chat messages,
flip smart switches, read server info and grab CCTV frames.

Credentials (server, port, player_id, player_token, use_proxy) are read
from a JSON file, conf/rpconfig.json by default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.rpConfig, "config", "c", "conf/rpconfig.json", "Rust+ credentials file")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Development logging")
	rootCmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "Timeout for one-shot commands")

	rootCmd.AddCommand(
		botCmd(&g),
		chatCmd(&g),
		switchCmd(&g),
		infoCmd(&g),
		cameraCmd(&g),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug || os.Getenv("APP_ENV") != "production" {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}

func loadJSON[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

// session - подключённый клиент для одноразовых команд.
type session struct {
	rp     *rpclient.RustPlus
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func openSession(g *globalFlags) (*session, error) {
	log := newLogger(g.debug)

	var cfg rpclient.RustPlusConfig
	if err := loadJSON(g.rpConfig, &cfg); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	rp := rpclient.NewFromConfig(cfg, rpclient.WithLogger(log))
	if err := rp.ConnectAndWait(ctx); err != nil {
		cancel()
		_ = log.Sync()
		return nil, errors.Wrap(err, "connect")
	}
	return &session{rp: rp, log: log, ctx: ctx, cancel: cancel}, nil
}

func (s *session) Close() {
	s.rp.Disconnect()
	s.cancel()
	_ = s.log.Sync()
}
