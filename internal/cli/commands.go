package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gmsas95/medreminder/internal/app"
	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
	"github.com/gmsas95/medreminder/internal/config"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/notify"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
	"go.uber.org/zap"
)

var (
	Version = "dev"

	// ConfigPath is the --config flag; empty means the file in the data dir.
	ConfigPath string

	out io.Writer = os.Stdout
)

func HandleLoginCommand(args []string, application *app.App) error {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: medreminder login <user-id>")
		return apperrors.ErrBadRequest
	}

	token, err := application.Accounts.Login(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Signed in as %s\n", strings.TrimSpace(args[0]))
	fmt.Fprintf(out, "  Token: %s\n", maskToken(token))
	return nil
}

func HandleLogoutCommand(application *app.App) error {
	if err := application.Accounts.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Signed out")
	return nil
}

func HandleWhoamiCommand(application *app.App) error {
	user, err := application.Accounts.CurrentUser()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, user)
	return nil
}

func HandleRemindersCommand(args []string, application *app.App) error {
	user, err := application.Accounts.CurrentUser()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 0 || args[0] == "list" || args[0] == "ls" {
		list, err := application.Outbox.List(ctx, user, 50)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No reminders yet. Add one with: medreminder form")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMEDICINE\tTIME\tUNTIL\tNEXT\tSTATUS")
		for _, r := range list {
			until := r.EndDate
			if until == "" {
				until = "-"
			}
			next := "-"
			if r.Status == store.StatusScheduled {
				next = r.NextFireAt.In(time.Local).Format("Mon Jan 2 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.MedicationName, r.ReminderTime, until, next, r.Status)
		}
		return w.Flush()
	}

	switch args[0] {
	case "cancel", "rm":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: medreminder reminders cancel <id>")
			return apperrors.ErrBadRequest
		}
		r, err := application.Outbox.Get(ctx, args[1])
		if err != nil {
			return err
		}
		if r.UserID != user {
			return apperrors.ErrNotFound
		}
		if err := application.Outbox.Cancel(ctx, r.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Cancelled reminder for %s\n", r.MedicationName)
		return nil
	}

	PrintRemindersHelp()
	return nil
}

// HandleNextCommand previews when a reminder at HH:MM would first fire.
func HandleNextCommand(args []string, cfg *config.Config) error {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: medreminder next <HH:MM>")
		return apperrors.ErrBadRequest
	}
	tod, err := civil.ParseTimeOfDay(args[0])
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	trigger := reminder.NextTrigger(time.Now().In(loc), tod)
	fmt.Fprintf(out, "%s (%s from now)\n", trigger.Format("Mon Jan 2 2006 15:04 MST"), time.Until(trigger).Round(time.Minute))
	return nil
}

func HandleConfigCommand(args []string, cfg *config.Config) error {
	if len(args) == 0 {
		PrintConfigHelp()
		return nil
	}

	path := configFile(cfg)

	switch args[0] {
	case "get":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: medreminder config get <key>")
			fmt.Fprintln(out, "Example: medreminder config get form.interaction_model")
			return apperrors.ErrBadRequest
		}
		value, ok := configValue(cfg, args[1])
		if !ok {
			fmt.Fprintf(out, "Unknown key: %s\n", args[1])
			fmt.Fprintln(out, "Available keys: server.port, server.address, storage.data_dir, form.interaction_model, form.timezone, form.catalog_path, notify.tick, notify.deliverers, notify.permission_granted")
			return apperrors.ErrBadRequest
		}
		fmt.Fprintln(out, value)

	case "path":
		fmt.Fprintln(out, path)

	case "show", "view":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading config: %w", err)
		}
		fmt.Fprintln(out, string(data))

	default:
		PrintConfigHelp()
	}
	return nil
}

func configFile(cfg *config.Config) string {
	if ConfigPath != "" {
		return ConfigPath
	}
	return filepath.Join(cfg.Storage.DataDir, "medreminder.yaml")
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "server.port":
		return fmt.Sprint(cfg.Server.Port), true
	case "server.address":
		return cfg.Server.Address, true
	case "storage.data_dir":
		return cfg.Storage.DataDir, true
	case "form.interaction_model":
		return cfg.InteractionModel().String(), true
	case "form.timezone":
		return cfg.Form.Timezone, true
	case "form.catalog_path":
		return cfg.Form.CatalogPath, true
	case "notify.tick":
		return cfg.Notify.Tick, true
	case "notify.deliverers":
		return strings.Join(cfg.Notify.Deliverers, ","), true
	case "notify.permission_granted":
		return fmt.Sprint(cfg.Notify.PermissionGranted), true
	}
	return "", false
}

func HandleDeliverersCommand(args []string, cfg *config.Config) error {
	if len(args) == 0 || args[0] != "status" {
		PrintDeliverersHelp()
		return nil
	}

	enabled := make(map[string]bool, len(cfg.Notify.Deliverers))
	for _, name := range cfg.Notify.Deliverers {
		enabled[strings.ToLower(name)] = true
	}

	fmt.Fprintln(out, "Deliverer Status:")
	fmt.Fprintln(out, "=================")
	fmt.Fprintf(out, "Log:      %s\n", channelStatus(enabled["log"] || len(enabled) == 0))
	fmt.Fprintf(out, "Webhook:  %s\n", channelStatus(enabled["webhook"]))
	if enabled["webhook"] {
		fmt.Fprintf(out, "  URL: %s\n", cfg.Notify.Webhook.URL)
		fmt.Fprintf(out, "  Rate: %.1f/s, trips after %d failures\n", cfg.Notify.Webhook.RatePerSec, cfg.Notify.Webhook.MaxFailures)
	}
	fmt.Fprintf(out, "Telegram: %s\n", channelStatus(enabled["telegram"]))
	if enabled["telegram"] {
		fmt.Fprintf(out, "  Bot Token: %s\n", maskToken(cfg.Notify.Telegram.BotToken))
		fmt.Fprintf(out, "  Chat ID: %d\n", cfg.Notify.Telegram.ChatID)
	}
	fmt.Fprintf(out, "Discord:  %s\n", channelStatus(enabled["discord"]))
	if enabled["discord"] {
		fmt.Fprintf(out, "  Token: %s\n", maskToken(cfg.Notify.Discord.Token))
		fmt.Fprintf(out, "  Channel: %s\n", cfg.Notify.Discord.ChannelID)
	}
	return nil
}

func channelStatus(enabled bool) string {
	if enabled {
		return "✅ enabled"
	}
	return "❌ disabled"
}

func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func HandleStatusCommand(cfg *config.Config) {
	fmt.Fprintln(out, "Medreminder Status")
	fmt.Fprintln(out, "==================")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Version: %s\n", Version)
	fmt.Fprintf(out, "Config:  %s\n", configFile(cfg))
	fmt.Fprintf(out, "Data:    %s\n", cfg.Storage.DataDir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Server Configuration:")
	fmt.Fprintf(out, "  Address: %s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  URL: http://localhost:%d\n", cfg.Server.Port)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Form:")
	fmt.Fprintf(out, "  Picker:   %s\n", cfg.InteractionModel())
	fmt.Fprintf(out, "  Timezone: %s\n", orDefault(cfg.Form.Timezone, "local"))
	fmt.Fprintf(out, "  Catalog:  %s\n", orDefault(cfg.Form.CatalogPath, "built-in"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Notifications:")
	fmt.Fprintf(out, "  Permission: %s\n", channelStatus(cfg.Notify.PermissionGranted))
	fmt.Fprintf(out, "  Deliverers: %s\n", strings.Join(cfg.Notify.Deliverers, ", "))
	fmt.Fprintf(out, "  Tick:       %s\n", cfg.Notify.Tick)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'medreminder doctor' for diagnostics")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// HandleDoctorCommand runs the diagnostics and returns the number of issues
// found.
func HandleDoctorCommand(cfg *config.Config) int {
	fmt.Fprintln(out, "Medreminder Diagnostics")
	fmt.Fprintln(out, "=======================")
	fmt.Fprintln(out)

	issues := 0

	if _, err := os.Stat(cfg.Storage.DataDir); os.IsNotExist(err) {
		fmt.Fprintln(out, "❌ Data Directory: Does not exist")
		issues++
	} else {
		fmt.Fprintln(out, "✅ Data Directory: Exists")
	}

	if _, err := cfg.Location(); err != nil {
		fmt.Fprintf(out, "❌ Timezone: %v\n", err)
		issues++
	} else {
		fmt.Fprintf(out, "✅ Timezone: %s\n", orDefault(cfg.Form.Timezone, "local"))
	}

	if cfg.Form.CatalogPath != "" {
		if c, err := catalog.Load(cfg.Form.CatalogPath); err != nil {
			fmt.Fprintf(out, "❌ Catalog: %v\n", err)
			issues++
		} else {
			fmt.Fprintf(out, "✅ Catalog: %d medication types\n", len(c.Types))
		}
	} else {
		fmt.Fprintln(out, "✅ Catalog: built-in")
	}

	if _, err := notify.Build(cfg.Notify, zap.NewNop()); err != nil {
		fmt.Fprintf(out, "❌ Deliverers: %v\n", err)
		issues++
	} else {
		fmt.Fprintf(out, "✅ Deliverers: %s\n", strings.Join(cfg.Notify.Deliverers, ", "))
	}

	if !cfg.Notify.PermissionGranted {
		fmt.Fprintln(out, "⚠️  Notifications: Permission not granted, entries will be saved without reminders")
		fmt.Fprintln(out, "   Set notify.permission_granted: true")
		issues++
	} else {
		fmt.Fprintln(out, "✅ Notifications: Permission granted")
	}

	fmt.Fprintln(out)
	if issues == 0 {
		fmt.Fprintln(out, "✅ All checks passed!")
	} else {
		fmt.Fprintf(out, "⚠️  Found %d issue(s). Edit %s to fix configuration.\n", issues, configFile(cfg))
	}
	return issues
}
