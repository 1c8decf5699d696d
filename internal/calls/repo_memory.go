package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory repository for tests and local development.
// Reads return copies so callers never alias stored state.
type MemoryRepo struct {
	mu sync.Mutex

	Patients map[string]Patient
	Calls    map[string]Call // key: call_sid

	// FailInsert and FailUpdate force the corresponding writes to fail.
	FailInsert error
	FailUpdate error

	Now func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{Patients: map[string]Patient{}, Calls: map[string]Call{}}
}

func (r *MemoryRepo) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Patients[p.ID] = p
}

func (r *MemoryRepo) GetPatient(ctx context.Context, patientID string) (Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Patients[patientID]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, c Call) (Call, error) {
	if c.PatientID == "" || c.CallSID == "" {
		return Call{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return Call{}, r.FailInsert
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	c.ResponseData = c.ResponseData.Clone()
	r.Calls[c.CallSID] = c
	return c, nil
}

func (r *MemoryRepo) GetByCallSID(ctx context.Context, callSID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Calls[callSID]
	if !ok {
		return Call{}, ErrNotFound
	}
	c.Patient = r.Patients[c.PatientID]
	c.ResponseData = c.ResponseData.Clone()
	return c, nil
}

func (r *MemoryRepo) Update(ctx context.Context, callSID string, u Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	c, ok := r.Calls[callSID]
	if !ok {
		return ErrNotFound
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.StartTime != nil {
		t := *u.StartTime
		c.StartTime = &t
	}
	if u.DurationSeconds != nil {
		d := *u.DurationSeconds
		c.DurationSeconds = &d
	}
	if u.ResponseData != nil {
		c.ResponseData = u.ResponseData.Clone()
	}
	r.Calls[callSID] = c
	return nil
}

func (r *MemoryRepo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
