// Command simadmin is the administrator console of the training
// simulation platform.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/sim-admin/internal/app"
	"github.com/nhle/sim-admin/internal/backend"
	"github.com/nhle/sim-admin/internal/credential"
	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/realtime"
	"github.com/nhle/sim-admin/internal/session"
	"github.com/nhle/sim-admin/internal/ui/bell"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}

	configPath := pflag.StringP("config", "c", model.DefaultConfigPath(), "path to the console config file")
	pflag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; diagnostics go to a file.
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "simadmin")
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	token, err := credential.AccessToken()
	if err != nil {
		log.Printf("reading access token: %v", err)
	}

	m := app.New(cfg, *configPath, token, newBell, validateSettings)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newBackendClient(cfg *model.AppConfig, token string) *backend.Client {
	opts := []backend.Option{
		backend.WithAPIKey(cfg.Backend.APIKey),
		backend.WithRateLimit(cfg.Backend.RateLimit),
	}
	if cfg.Backend.TimeoutSec > 0 {
		opts = append(opts, backend.WithTimeout(time.Duration(cfg.Backend.TimeoutSec)*time.Second))
	}
	return backend.NewClient(cfg.Backend.BaseURL, token, opts...)
}

// newBell mounts the notification bell. The admin gate comes from the
// token's role claim.
func newBell(cfg *model.AppConfig, token string) bell.Model {
	rt := realtime.NewClient(realtime.Config{
		URL:         cfg.Backend.RealtimeEndpoint(),
		APIKey:      cfg.Backend.APIKey,
		AccessToken: token,
	})
	subscribe := func(ctx context.Context) (bell.Feed, error) {
		sub, err := rt.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}

	return bell.New(
		session.IsAdmin(token),
		newBackendClient(cfg, token),
		subscribe,
		bell.WithToastDuration(time.Duration(cfg.Notifications.ToastSeconds)*time.Second),
		bell.WithMaxItems(cfg.Notifications.MaxItems),
	)
}

// validateSettings checks the settings from the setup form by reading the
// notification list once.
func validateSettings(ctx context.Context, cfg *model.AppConfig, token string) error {
	if !session.IsAdmin(token) {
		return fmt.Errorf("the access token does not carry the admin role")
	}
	_, err := newBackendClient(cfg, token).ListNotifications(ctx)
	return err
}
