package events

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StoredEvent is the persisted lifecycle event feed row. Downstream
// billing jobs and the reporting endpoint read from this table.
type StoredEvent struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	OrgID      int64          `json:"org_id" gorm:"index;not null"`
	Name       string         `json:"name" gorm:"size:50;index"`
	PlanID     int64          `json:"plan_id,omitempty" gorm:"index"`
	HoldID     int64          `json:"hold_id,omitempty"`
	MemberID   int64          `json:"member_id,omitempty"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (StoredEvent) TableName() string { return "lifecycle_events" }

// Store persists events and serves the reporting feed.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Publish(ctx context.Context, e Event) error {
	row := StoredEvent{
		OrgID:      e.OrgID,
		Name:       e.Name,
		PlanID:     e.PlanID,
		HoldID:     e.HoldID,
		MemberID:   e.MemberID,
		OccurredAt: e.OccurredAt,
	}
	if len(e.Payload) > 0 {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return err
		}
		row.Payload = datatypes.JSON(raw)
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns the newest events for an org, capped at limit.
func (s *Store) List(ctx context.Context, orgID int64, limit int) ([]*StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	var rows []*StoredEvent
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
