package repository

import (
	"time"

	"github.com/goliatone/go-repository-engine/store"
)

// Interface assertion to ensure Model satisfies the store contract.
var _ store.Record = (*Model)(nil)

// Model is the embeddable base row: identity, optimistic-lock version and
// lifecycle timestamps. Domain models embed it next to their bun.BaseModel:
//
//	type Card struct {
//		bun.BaseModel `bun:"table:cards,alias:c"`
//		repository.Model
//
//		HolderID string `bun:"holder_id,notnull" json:"holder_id"`
//	}
//
// Version starts at 0 on create and increments on every successful update;
// the engine uses it for conflict detection. DeletedAt non-nil marks the row
// soft-deleted: reads skip it unless asked otherwise.
type Model struct {
	ID        string     `bun:"id,pk" json:"id"`
	Version   int64      `bun:"version,notnull" json:"version"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deleted_at,omitempty"`
}

func (m *Model) RecordID() string                { return m.ID }
func (m *Model) SetRecordID(id string)           { m.ID = id }
func (m *Model) RecordVersion() int64            { return m.Version }
func (m *Model) SetRecordVersion(v int64)        { m.Version = v }
func (m *Model) RecordDeletedAt() *time.Time     { return m.DeletedAt }
func (m *Model) SetRecordDeletedAt(t *time.Time) { m.DeletedAt = t }
func (m *Model) StampCreated(now time.Time)      { m.CreatedAt = now }
func (m *Model) StampUpdated(now time.Time)      { m.UpdatedAt = now }
