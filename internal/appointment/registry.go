package appointment

import (
	"strings"
	"sync"
)

// Key identifies a patient in the Registry. Build it with RegistrationKey.
type Key string

// RegistrationKey lower-cases and concatenates first name, last name and
// insurance id with no separator.
func RegistrationKey(firstName, lastName, insuranceID string) Key {
	return Key(strings.ToLower(firstName) + strings.ToLower(lastName) + strings.ToLower(insuranceID))
}

// Key returns the registration key of the identity.
func (id Identity) Key() Key {
	return RegistrationKey(id.FirstName, id.LastName, id.InsuranceID)
}

// IsInsuranceIDValid reports whether id is "ID" followed by exactly five digits.
func IsInsuranceIDValid(id string) bool {
	if len(id) != 7 || !strings.HasPrefix(id, "ID") {
		return false
	}
	for _, c := range id[2:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Registry is the in-memory store of patient appointment records. Records are
// created once, never deleted, and only ever handed out as copies.
// Concurrent writes to the same key are last-writer-wins.
type Registry struct {
	mu      sync.RWMutex
	records map[Key]*Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[Key]*Record)}
}

// TryRegister creates an empty record for key. It returns false, leaving the
// existing record untouched, when key is already present.
func (r *Registry) TryRegister(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[key]; exists {
		return false
	}
	r.records[key] = &Record{}
	return true
}

// Get returns a copy of the record for key.
func (r *Registry) Get(key Key) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

func (r *Registry) Contains(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[key]
	return ok
}

// Update applies fn to the stored record under the write lock and returns a
// copy of the result. It returns false without calling fn when key is absent.
func (r *Registry) Update(key Key, fn func(rec *Record)) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return Record{}, false
	}
	fn(rec)
	return rec.clone(), true
}

// Len returns the number of registered patients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
