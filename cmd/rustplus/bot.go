package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/bmapi"
	"github.com/EgorLis/rustplus/internal/bot"
	"github.com/EgorLis/rustplus/internal/rpclient"
)

type botFlags struct {
	bmConfig    string
	botConfig   string
	soundDir    string
	metricsAddr string
	deathWatch  bool
	deathSound  string
}

func botCmd(g *globalFlags) *cobra.Command {
	var f botFlags

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the team-chat bot",
		Long: `Run the team-chat bot until interrupted.

The bot answers !commands in team chat, watches smart alarms, toggles
smart switches, reports deaths and BattleMetrics joins/leaves. It
reconnects on its own after any disconnect.

Examples:
  rustplus bot
  rustplus bot --bm-config conf/bmconfig.json --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(g, f)
		},
	}

	cmd.Flags().StringVar(&f.bmConfig, "bm-config", "", "BattleMetrics config (server, token); empty disables tracking")
	cmd.Flags().StringVar(&f.botConfig, "bot-config", "conf/botconfig.json", "Bot state file (switches, alarms, players)")
	cmd.Flags().StringVar(&f.soundDir, "sounds", "sounds", "Directory with alarm/death sounds")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics on this address (e.g. :9100)")
	cmd.Flags().BoolVar(&f.deathWatch, "death-watch", false, "Watch the configured player for deaths from start")
	cmd.Flags().StringVar(&f.deathSound, "death-sound", "none", "Sound to play on death")

	return cmd
}

func runBot(g *globalFlags, f botFlags) error {
	log := newLogger(g.debug)
	defer func() { _ = log.Sync() }()

	var rpcfg rpclient.RustPlusConfig
	if err := loadJSON(g.rpConfig, &rpcfg); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rp := rpclient.NewFromConfig(rpcfg,
		rpclient.WithLogger(log),
		rpclient.WithRegisterer(reg),
	)

	b := bot.New(log)
	b.SetRustPlusClient(rp)
	b.SetSoundDir(f.soundDir)
	if !rpcfg.UseProxy {
		b.EnableHeartbeat()
	}
	if f.bmConfig != "" {
		var bmcfg bmapi.BMConf
		if err := loadJSON(f.bmConfig, &bmcfg); err != nil {
			return err
		}
		b.SetBattleMetrics(bmapi.NewClientFromConf(bmcfg, bmapi.WithLogger(log)))
	}
	if err := b.UseConfig(f.botConfig); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsAddr != "" {
		srv := &http.Server{Addr: f.metricsAddr, Handler: metricsRouter(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics listening", zap.String("addr", f.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	if f.deathWatch {
		sound := f.deathSound
		b.SetCheckPlayerDeath(rpcfg.PlayerID, &sound)
		if err := b.StartDeathWatch(15 * time.Second); err != nil {
			log.Warn("death-watch", zap.Error(err))
		}
	}

	log.Info("running, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}
