package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/RemoteDesk/internal/adapters/rtc"
	"github.com/dkeye/RemoteDesk/internal/agent"
	"github.com/dkeye/RemoteDesk/internal/client"
	"github.com/dkeye/RemoteDesk/internal/config"
	"github.com/dkeye/RemoteDesk/internal/control"
	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/desktop/x11"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/dkeye/RemoteDesk/internal/files"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deskagent",
		Short:         "RemoteDesk desktop agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config-env", "", "config file suffix, config/agent.<env>.yaml (default $CONFIG_ENV or dev)")
	pf.String("relay-url", "", "relay WebSocket URL")
	pf.String("user-id", "", "stable user id (generated when empty)")
	pf.String("log-level", "", "zerolog level")

	root.AddCommand(newHostCmd(), newSendCmd(), newIDCmd())
	return root
}

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print a fresh user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := domain.NewUserID()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func newHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Accept viewers: inject their input, save their files, sync the clipboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAgent(cmd.Flags())
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.String("download-dir", "", "where received files are saved")
	f.String("display", "", "X display to drive (default $DISPLAY)")
	return cmd
}

func newSendCmd() *cobra.Command {
	var target, path string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Connect to a host by user id and send it a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAgent(cmd.Flags())
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), cfg, target, path)
		},
	}
	f := cmd.Flags()
	f.StringVar(&target, "target", "", "user id of the host")
	f.StringVar(&path, "file", "", "file to send")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func loadAgent(flags *pflag.FlagSet) (*config.AgentConfig, error) {
	cfg, err := config.LoadAgent(flags)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(cfg.Level())
	return cfg, nil
}

func peerFactory(cfg *config.AgentConfig) agent.PeerFactory {
	pcCfg := rtc.ConfigFromURLs(cfg.ICEServers)
	return func(remote domain.PeerID) (core.PeerConnection, error) {
		return rtc.NewWebRTCConnection(pcCfg, remote)
	}
}

func clientOptions(cfg *config.AgentConfig) client.Options {
	return client.Options{
		URL:          cfg.RelayURL,
		ReconnectMin: cfg.ReconnectMin,
		ReconnectMax: cfg.ReconnectMax,
	}
}

func runHost(ctx context.Context, cfg *config.AgentConfig) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	uid, err := hostUserID(cfg.UserID)
	if err != nil {
		return err
	}
	name, _ := os.Hostname()

	run := x11.NewRunner(cfg.Display)
	xdo := x11.NewXdotool(run)
	injector := control.NewFallbackInjector(xdo, x11.NewYdotool(run))
	screen := control.NewCachedScreen(xdo, cfg.ScreenTTL)
	dispatcher := control.NewDispatcher(injector, screen)
	saver := files.NewSaver(afero.NewOsFs(), cfg.DownloadDir)
	clip := x11.NewXClip(run)

	host := agent.NewHost(agent.HostOptions{
		UserID:  uid,
		NewPeer: peerFactory(cfg),
		Session: func() control.SessionOptions {
			return control.SessionOptions{
				Name:              name,
				Dispatcher:        dispatcher,
				Receiver:          control.NewReceiver(saver, cfg.MaxFileSize),
				Clipboard:         clip,
				ClipboardInterval: cfg.ClipboardInterval,
			}
		},
	})
	defer host.Close()

	log.Info().Str("user_id", string(uid)).Str("relay", cfg.RelayURL).Msg("hosting; share this user id with the viewer")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(ctx, clientOptions(cfg), host)
	})
	g.Go(func() error {
		// SIGUSR1 tells us the display layout changed.
		changed := make(chan os.Signal, 1)
		signal.Notify(changed, syscall.SIGUSR1)
		defer signal.Stop(changed)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				screen.Invalidate()
				log.Info().Msg("display changed, screen size invalidated")
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func hostUserID(raw string) (domain.UserID, error) {
	if raw == "" {
		return domain.NewUserID()
	}
	return domain.ParseUserID(raw)
}

func runSend(ctx context.Context, cfg *config.AgentConfig, target, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tid, err := domain.ParseUserID(target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	data, err := files.NewReader(afero.NewOsFs()).ReadFile(path)
	if err != nil {
		return err
	}
	var uid domain.UserID
	if cfg.UserID != "" {
		if uid, err = domain.ParseUserID(cfg.UserID); err != nil {
			return err
		}
	}

	name, _ := os.Hostname()
	done := make(chan error, 1)
	viewer := agent.NewViewer(agent.ViewerOptions{
		Target:  tid,
		UserID:  uid,
		NewPeer: peerFactory(cfg),
		Session: func() control.SessionOptions { return control.SessionOptions{Name: name} },
		OnReady: func(ctx context.Context, s *control.Session) {
			err := s.SendFile(ctx, filepath.Base(path), data, cfg.ChunkSize)
			if err == nil {
				err = s.Flush(ctx)
			}
			select {
			case done <- err:
			default:
			}
		},
	})
	defer viewer.Close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	var result error
	g.Go(func() error {
		return client.Run(runCtx, clientOptions(cfg), viewer)
	})
	g.Go(func() error {
		defer stop()
		select {
		case <-runCtx.Done():
		case <-viewer.Failed():
			result = viewer.Err()
		case result = <-done:
			if result == nil {
				log.Info().Str("file", path).Int("bytes", len(data)).Str("target", string(tid)).Msg("file sent")
			}
		}
		return nil
	})
	err = g.Wait()
	if result != nil {
		return result
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
