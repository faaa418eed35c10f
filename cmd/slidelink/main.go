package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nrdvana/slidelink/internal/config"
	"github.com/nrdvana/slidelink/internal/controller"
	"github.com/nrdvana/slidelink/internal/deck"
	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/observability"
	"github.com/nrdvana/slidelink/internal/syncchan"
	"github.com/nrdvana/slidelink/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "slidelink:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(os.Args) > 1 {
		cfg.Deck = os.Args[1]
	}
	if cfg.Deck == "" {
		return errors.New("usage: slidelink <deck.html> (or set SLIDELINK_DECK)")
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := observability.InitLoggerTo(logFile, "slidelink")

	opts := deck.Options{RootClass: cfg.RootClass}
	pres, err := deck.LoadFile(cfg.Deck, opts)
	if err != nil {
		return fmt.Errorf("failed to load deck: %w", err)
	}
	logger.Info().Str("deck", cfg.Deck).Int("slides", pres.Len()).Msg("deck loaded")

	// the terminal belongs to the slide view once it starts, so ask now
	key := cfg.Key
	if cfg.Mode == config.ModePresenter && key == "" {
		if key, err = promptKey(); err != nil {
			return err
		}
	}

	ch := syncchan.New(syncchan.Options{
		Address:          cfg.URL,
		PageURL:          cfg.PageURL,
		Mode:             cfg.Mode,
		Keys:             syncchan.StaticKey(key),
		HandshakeTimeout: cfg.HandshakeTimeout,
		Heartbeat:        cfg.Heartbeat,
		DeadAfter:        cfg.DeadAfter,
	}, logger)
	defer ch.Close()

	ctrlOpts := controller.Options{Mode: cfg.Mode}
	if cfg.Reconnect.Enabled {
		ctrlOpts.Reconnect = syncchan.BackoffConfig{
			InitialDelay: cfg.Reconnect.InitialDelay,
			Multiplier:   cfg.Reconnect.Multiplier,
			MaxDelay:     cfg.Reconnect.MaxDelay,
			Jitter:       cfg.Reconnect.Jitter,
			MaxAttempts:  cfg.Reconnect.MaxAttempts,
		}
	}
	ctrl, err := controller.New(pres, ch, ctrlOpts, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.New(ctrl.Submit), tea.WithAltScreen(), tea.WithContext(ctx))
	ctrl.Subscribe(func(s controller.Snapshot) {
		p.Send(tui.SnapshotMsg(s))
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(ctrl.Run(ctx))
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	if cfg.Watch {
		g.Go(func() error {
			onLoad := func(next *models.Presentation) {
				if err := ctrl.Submit(controller.LoadDeck{Presentation: next}); err != nil {
					logger.Debug().Err(err).Msg("dropping reloaded deck")
				}
			}
			return ignoreCanceled(deck.Watch(ctx, cfg.Deck, opts, deck.DefaultDebounce, onLoad, logger))
		})
	}

	err = g.Wait()
	logShutdown(logger, err)
	return err
}

func promptKey() (string, error) {
	fmt.Fprint(os.Stderr, "Presenter key: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func logShutdown(logger zerolog.Logger, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("client stopped")
		return
	}
	logger.Info().Msg("client stopped")
}
