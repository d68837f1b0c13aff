package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pet-health-records/internal/domain/records"
)

type recordsRepo struct {
	mu   sync.RWMutex
	byID map[string]records.HealthRecord
}

func NewRecordsRepo() records.Repository {
	return &recordsRepo{
		byID: make(map[string]records.HealthRecord),
	}
}

func (r *recordsRepo) Create(ctx context.Context, rec records.HealthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}

	r.byID[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *recordsRepo) GetByID(ctx context.Context, id string) (records.HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok || rec.DeletedAt != nil {
		return records.HealthRecord{}, records.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *recordsRepo) ListAll(ctx context.Context) ([]records.HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.HealthRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		if rec.DeletedAt != nil {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sortByDateDesc(out)
	return out, nil
}

func (r *recordsRepo) ListByPet(ctx context.Context, petID string) ([]records.HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.HealthRecord, 0)
	for _, rec := range r.byID {
		if rec.DeletedAt != nil || rec.PetID != petID {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sortByDateDesc(out)
	return out, nil
}

func (r *recordsRepo) Update(ctx context.Context, rec records.HealthRecord, expectedVersion int64) (records.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[rec.ID]
	if !ok || stored.DeletedAt != nil {
		return records.HealthRecord{}, records.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return records.HealthRecord{}, records.ErrConflict
	}

	next := cloneRecord(rec)
	next.PetID = stored.PetID // inmutable pase lo que pase
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	next.UpdatedAt = time.Now()
	next.DeletedAt = nil

	r.byID[rec.ID] = next
	return cloneRecord(next), nil
}

func (r *recordsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.DeletedAt != nil {
		return records.ErrNotFound
	}

	rec.DeletedAt = &at
	rec.UpdatedAt = at
	rec.Version++
	r.byID[id] = rec
	return nil
}

func (r *recordsRepo) Restore(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.ErrNotFound
	}
	if rec.DeletedAt == nil {
		return nil
	}

	rec.DeletedAt = nil
	rec.UpdatedAt = time.Now()
	rec.Version++
	r.byID[id] = rec
	return nil
}

// cloneRecord copia el registro incluyendo los campos con referencia, para
// que dos lecturas nunca compartan estado mutable.
func cloneRecord(rec records.HealthRecord) records.HealthRecord {
	out := rec
	if rec.MediaIDs != nil {
		out.MediaIDs = append([]string(nil), rec.MediaIDs...)
	}
	if rec.NextVisitDate != nil {
		t := *rec.NextVisitDate
		out.NextVisitDate = &t
	}
	if rec.DeletedAt != nil {
		t := *rec.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func sortByDateDesc(items []records.HealthRecord) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}
