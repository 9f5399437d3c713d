package data

import "time"

// SimulationRunEvent is the GORM model for the simulation_run_events table
type SimulationRunEvent struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	RunID     string    `gorm:"column:run_id;type:varchar(36);not null;index"`
	EventType string    `gorm:"column:event_type;type:varchar(32);not null"`
	Details   string    `gorm:"column:details;type:json"` // JSON string
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SimulationRunEvent) TableName() string {
	return "simulation_run_events"
}
