package store

import (
	"time"
)

// Reminder statuses
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ScheduledReminder is one daily reminder handed over by a submitted entry.
// It fires at NextFireAt and then every day at ReminderTime until EndDate.
type ScheduledReminder struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"index" json:"user_id"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Priority       string     `json:"priority"`
	SoundEnabled   bool       `json:"sound_enabled"`
	MedicationName string     `json:"medication_name"`
	Dose           string     `json:"dose,omitempty"`
	StartDate      string     `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate        string     `json:"end_date,omitempty"`   // YYYY-MM-DD, last day that fires
	ReminderTime   string     `json:"reminder_time"`        // HH:MM[:SS]
	Timezone       string     `json:"timezone"`
	NextFireAt     time.Time  `gorm:"index:idx_status_next" json:"next_fire_at"`
	Status         string     `gorm:"index:idx_status_next;default:scheduled" json:"status"`
	FiredCount     int        `json:"fired_count"`
	LastFiredAt    *time.Time `json:"last_fired_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DeliveryAttempt records one attempt to deliver a reminder on one channel.
type DeliveryAttempt struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReminderID string    `gorm:"index" json:"reminder_id"`
	Channel    string    `json:"channel"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	FireAt     time.Time `json:"fire_at"`
	CreatedAt  time.Time `json:"created_at"`
}
