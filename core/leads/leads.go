// Package leads records completed policy lookup requests for advisors.
package leads

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRequest is returned when a request misses required fields.
var ErrInvalidRequest = errors.New("leads: invalid request")

// Request is a finished policy lookup: who asked and the validated data.
type Request struct {
	ID            uuid.UUID `db:"id"`
	SenderID      string    `db:"sender_id"`
	FullName      string    `db:"full_name"`
	NationalID    string    `db:"national_id"`
	BirthDate     string    `db:"birth_date"`
	InsuranceType string    `db:"insurance_type"`
	CreatedAt     time.Time `db:"created_at"`
}

// NewRequest stamps a fresh id and creation time.
func NewRequest(senderID, fullName, nationalID, birthDate, insuranceType string) Request {
	return Request{
		ID:            uuid.New(),
		SenderID:      senderID,
		FullName:      fullName,
		NationalID:    nationalID,
		BirthDate:     birthDate,
		InsuranceType: insuranceType,
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate checks required fields.
func (r Request) Validate() error {
	if r.ID == uuid.Nil || r.SenderID == "" || r.NationalID == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Repository stores requests.
type Repository interface {
	Save(ctx context.Context, r Request) error
	ListRecent(ctx context.Context, limit int) ([]Request, error)
}

// MemoryRepository keeps requests in process; used when no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []Request
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save implements Repository.
func (m *MemoryRepository) Save(_ context.Context, r Request) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, r)
	return nil
}

// ListRecent returns up to limit requests, newest first.
func (m *MemoryRepository) ListRecent(_ context.Context, limit int) ([]Request, error) {
	m.mu.RLock()
	out := append([]Request(nil), m.items...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
