package models

import (
	"time"

	"github.com/google/uuid"
)

// BotState represents the persisted runtime state of one bot instance.
// It is owned exclusively by the running instance and flushed on every
// material change so a restart can resume where it left off.
type BotState struct {
	ConfigID          uuid.UUID  `db:"config_id" json:"config_id"`
	TenantID          uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	PositionOpen      bool       `db:"position_open" json:"position_open"`
	ActiveOrderID     string     `db:"active_order_id" json:"active_order_id"`
	PositionStartTime *time.Time `db:"position_start_time" json:"position_start_time"`
	ActiveTrades      int        `db:"active_trades" json:"active_trades"`
	LastError         string     `db:"last_error" json:"last_error"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// BotStateUpdate carries a partial state update. Nil fields are left
// untouched by the store, so concurrent writers cannot clobber fields
// they did not change.
type BotStateUpdate struct {
	PositionOpen      *bool
	ActiveOrderID     *string
	PositionStartTime *time.Time
	ClearPositionTime bool
	ActiveTrades      *int
	LastError         *string
}

// Apply merges the update into a state in memory, mirroring the store's
// partial-update semantics.
func (u *BotStateUpdate) Apply(state *BotState) {
	if u.PositionOpen != nil {
		state.PositionOpen = *u.PositionOpen
	}
	if u.ActiveOrderID != nil {
		state.ActiveOrderID = *u.ActiveOrderID
	}
	if u.PositionStartTime != nil {
		state.PositionStartTime = u.PositionStartTime
	}
	if u.ClearPositionTime {
		state.PositionStartTime = nil
	}
	if u.ActiveTrades != nil {
		state.ActiveTrades = *u.ActiveTrades
	}
	if u.LastError != nil {
		state.LastError = *u.LastError
	}
	state.UpdatedAt = time.Now().UTC()
}

// BoolPtr returns a pointer to the given bool
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to the given string
func StringPtr(v string) *string { return &v }

// IntPtr returns a pointer to the given int
func IntPtr(v int) *int { return &v }

// TimePtr returns a pointer to the given time
func TimePtr(v time.Time) *time.Time { return &v }
