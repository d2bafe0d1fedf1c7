package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/config"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

// DispatcherConfig holds dispatcher settings
type DispatcherConfig struct {
	Tick          string // cron spec, e.g. "@every 1m"
	BatchSize     int    // reminders fetched per tick
	MaxConcurrent int    // reminders delivered in parallel
	Withheld      bool   // notification permission not granted: fires are recorded, not delivered
}

// Dispatcher delivers due reminders on a cron schedule and moves each one on
// to its next daily fire time.
type Dispatcher struct {
	config    DispatcherConfig
	store     *store.Store
	deliverer Deliverer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	mu        sync.RWMutex
}

// NewDispatcher creates a dispatcher. A nil m uses the process-wide metrics.
func NewDispatcher(cfg DispatcherConfig, st *store.Store, d Deliverer, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Tick == "" {
		cfg.Tick = "@every 1m"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if m == nil {
		m = metrics.Default()
	}

	return &Dispatcher{
		config:    cfg,
		store:     st,
		deliverer: d,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules Tick. Overlapping ticks are skipped.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("dispatcher already running")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(d.config.Tick, d.runTick); err != nil {
		return fmt.Errorf("invalid tick %q: %w", d.config.Tick, err)
	}
	c.Start()

	d.cron = c
	d.running = true
	d.logger.Info("Dispatcher started",
		zap.String("tick", d.config.Tick),
		zap.String("deliverer", d.deliverer.Name()))
	return nil
}

// Stop stops the schedule and waits for a running tick to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	c := d.cron
	d.mu.Unlock()

	d.cancel()
	<-c.Stop().Done()
	d.logger.Info("Dispatcher stopped")
}

// IsRunning returns whether the dispatcher is active
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *Dispatcher) runTick() {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Dispatcher tick panicked", zap.Any("panic", r))
		}
	}()
	if _, err := d.Tick(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("Dispatcher tick failed", zap.Error(err))
	}
}

// Tick delivers every reminder that is due now and returns how many were
// processed. Each reminder fires once per tick however late it is; missed
// days are skipped, not replayed.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { d.metrics.ObserveDispatch(time.Since(start)) }()

	now := d.now()
	due, err := d.store.DueReminders(ctx, now, d.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	d.logger.Debug("Found due reminders", zap.Int("count", len(due)))

	sem := make(chan struct{}, d.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(r *store.ScheduledReminder) {
			defer wg.Done()
			defer func() { <-sem }()

			d.fire(ctx, r, now)
		}(&due[i])
	}

	wg.Wait()
	return len(due), ctx.Err()
}

type channelResult struct {
	channel string
	err     error
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) []channelResult {
	if d.config.Withheld {
		return []channelResult{{channel: d.deliverer.Name(), err: apperrors.ErrPermissionDenied}}
	}
	if multi, ok := d.deliverer.(*MultiDeliverer); ok {
		errs := multi.DeliverEach(ctx, n)
		results := make([]channelResult, len(errs))
		for i, ch := range multi.Channels() {
			results[i] = channelResult{channel: ch.Name(), err: errs[i]}
		}
		return results
	}
	return []channelResult{{channel: d.deliverer.Name(), err: d.deliverer.Deliver(ctx, n)}}
}

func (d *Dispatcher) fire(ctx context.Context, r *store.ScheduledReminder, now time.Time) {
	loc := location(r.Timezone)
	fireAt := r.NextFireAt.In(loc)

	var failures []string
	for _, res := range d.deliver(ctx, notificationFor(r, fireAt)) {
		attempt := &store.DeliveryAttempt{
			ReminderID: r.ID,
			Channel:    res.channel,
			Success:    res.err == nil,
			FireAt:     fireAt,
		}
		if res.err != nil {
			err := res.err
			if !apperrors.IsAppError(err) {
				err = apperrors.Wrap(err, apperrors.ErrDeliveryFailed.Code, apperrors.ErrDeliveryFailed.Message)
			}
			attempt.Error = err.Error()
			failures = append(failures, err.Error())
			d.logger.Warn("Reminder delivery failed",
				zap.String("reminder_id", r.ID),
				zap.String("channel", res.channel),
				zap.String("code", apperrors.GetCode(err)),
				zap.Error(err))
		}
		if err := d.store.RecordAttempt(ctx, attempt); err != nil {
			d.logger.Error("Failed to record delivery attempt",
				zap.String("reminder_id", r.ID),
				zap.Error(err))
		}
		d.metrics.RecordDelivery(res.channel, res.err == nil)
	}

	fired := now
	r.FiredCount++
	r.LastFiredAt = &fired
	r.LastError = strings.Join(failures, "; ")

	next := reminder.FollowingTrigger(fireAt)
	for !next.After(now) {
		next = reminder.FollowingTrigger(next)
	}
	r.NextFireAt = next
	if end, ok := endOfCourse(r); ok && next.After(end) {
		r.Status = store.StatusCompleted
	}

	if err := d.store.UpdateReminder(ctx, r); err != nil {
		d.logger.Error("Failed to advance reminder",
			zap.String("reminder_id", r.ID),
			zap.Error(err))
		return
	}

	d.logger.Info("Reminder fired",
		zap.String("reminder_id", r.ID),
		zap.String("user", r.UserID),
		zap.Int("failed_channels", len(failures)),
		zap.Time("next_fire_at", next),
		zap.String("status", r.Status))
}

// Build creates the deliverer named by cfg.Deliverers. Several names give a
// MultiDeliverer.
func Build(cfg config.NotifyConfig, logger *zap.Logger) (Deliverer, error) {
	var channels []Deliverer
	for _, name := range cfg.Deliverers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "log":
			channels = append(channels, NewLogDeliverer(logger))
		case "webhook":
			channels = append(channels, NewWebhookDeliverer(WebhookConfig{
				URL:         cfg.Webhook.URL,
				Timeout:     time.Duration(cfg.Webhook.Timeout) * time.Second,
				RatePerSec:  cfg.Webhook.RatePerSec,
				Burst:       cfg.Webhook.Burst,
				MaxFailures: cfg.Webhook.MaxFailures,
			}, logger))
		case "telegram":
			tg, err := NewTelegramDeliverer(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
			if err != nil {
				return nil, err
			}
			channels = append(channels, tg)
		case "discord":
			dc, err := NewDiscordDeliverer(cfg.Discord.Token, cfg.Discord.ChannelID)
			if err != nil {
				return nil, err
			}
			channels = append(channels, dc)
		default:
			return nil, fmt.Errorf("unknown deliverer %q", name)
		}
	}

	switch len(channels) {
	case 0:
		return NewLogDeliverer(logger), nil
	case 1:
		return channels[0], nil
	default:
		return NewMultiDeliverer(channels...), nil
	}
}
