package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/cart"
	"github.com/fjod/go_food/internal/checkout"
	"github.com/fjod/go_food/internal/client"
	"github.com/fjod/go_food/internal/config"
	"github.com/fjod/go_food/internal/notify"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("food-checkout", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("checkout did not complete")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, log zerolog.Logger) error {
	session := auth.NewSession(auth.NewFileStore(cfg.SessionFile))
	if err := session.Load(ctx); err != nil {
		return err
	}
	if cfg.Token != "" {
		user, err := auth.UserFromToken(cfg.Token)
		if err != nil {
			return err
		}
		if err := session.Login(ctx, cfg.Token, user); err != nil {
			return err
		}
	}

	notifier := notify.NewLogNotifier(log)
	store := cart.NewStore(notifier)
	if err := loadCart(cfg.CartFile, store); err != nil {
		return err
	}

	console := checkout.NewConsoleWidget(os.Stdin, os.Stdout)
	flow := checkout.NewFlow(checkout.FlowConfig{
		Backend:     client.New(cfg.APIURL, session, cfg.RequestTimeout),
		Widget:      console,
		Session:     session,
		Cart:        store,
		Notifier:    notifier,
		Logger:      log,
		PublicKey:   cfg.RazorpayKeyID,
		CallTimeout: cfg.RequestTimeout,
	})

	res, err := flow.Checkout(ctx)
	if errors.Is(err, checkout.ErrNotAuthenticated) {
		return fmt.Errorf("%w (set TOKEN to log in)", err)
	}
	for res.State == checkout.StateCommitFailed && flow.CanRetryCommit() &&
		console.Confirm("Payment received but the order was not saved. Retry?") {
		res, err = flow.RetryCommit(ctx)
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("state", res.State.String()).
		Str("order_id", res.OrderID).
		Str("grand_total", res.Breakdown.GrandTotal.String()).
		Msg("checkout finished")
	return nil
}

func loadCart(path string, store *cart.Store) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cart file: %w", err)
	}
	var items []cart.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("parse cart file %s: %w", path, err)
	}
	for _, it := range items {
		if err := store.AddItem(it); err != nil {
			return err
		}
		if it.Quantity > 1 {
			store.UpdateQuantity(it.ID, it.Quantity)
		}
	}
	return nil
}
