package repository

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/hospital-api/internal/models"
)

// MemoryStore bundles thread-safe in-memory repositories. The appointment
// repository enforces the same held-slot uniqueness as the Mongo partial index.
type MemoryStore struct {
	Users        *MemoryUsers
	Appointments *MemoryAppointments
	Messages     *MemoryMessages
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:        &MemoryUsers{users: make(map[primitive.ObjectID]models.User)},
		Appointments: &MemoryAppointments{appointments: make(map[primitive.ObjectID]models.Appointment), held: make(map[SlotKey]primitive.ObjectID)},
		Messages:     &MemoryMessages{},
	}
}

type MemoryAppointments struct {
	mu           sync.RWMutex
	appointments map[primitive.ObjectID]models.Appointment
	held         map[SlotKey]primitive.ObjectID // slot -> appointment holding it
}

func slotKeyOf(a *models.Appointment) SlotKey {
	return SlotKey{Department: a.Department, DoctorID: a.DoctorID, Date: a.AppointmentDate, Time: a.SelectTime}
}

func (m *MemoryAppointments) Create(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.SlotHeld = models.HoldsSlot(a.Status)
	key := slotKeyOf(a)
	if a.SlotHeld {
		if _, taken := m.held[key]; taken {
			return ErrSlotTaken
		}
		m.held[key] = a.ID
	}
	m.appointments[a.ID] = *a
	return nil
}

func (m *MemoryAppointments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryAppointments) FindHeld(_ context.Context, key SlotKey) (*models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.held[key]
	if !ok {
		return nil, ErrNotFound
	}
	a := m.appointments[id]
	return &a, nil
}

func (m *MemoryAppointments) HeldTimes(_ context.Context, department string, doctorID primitive.ObjectID, date string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	times := make([]string, 0)
	for key := range m.held {
		if key.Department == department && key.DoctorID == doctorID && key.Date == date {
			times = append(times, key.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (m *MemoryAppointments) ListByEmail(_ context.Context, email string) ([]models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.Appointment, 0)
	for _, a := range m.appointments {
		if a.Email == email {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AppointmentDate != result[j].AppointmentDate {
			return result[i].AppointmentDate < result[j].AppointmentDate
		}
		return result[i].SelectTime < result[j].SelectTime
	})
	return result, nil
}

func (m *MemoryAppointments) UpdateIfStatus(_ context.Context, id primitive.ObjectID, expectedStatus string, patch AppointmentPatch) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != expectedStatus {
		return nil, ErrStaleWrite
	}

	wasHeld := a.SlotHeld
	patch.apply(&a)
	key := slotKeyOf(&a)
	switch {
	case wasHeld && !a.SlotHeld:
		delete(m.held, key)
	case !wasHeld && a.SlotHeld:
		if _, taken := m.held[key]; taken {
			return nil, ErrSlotTaken
		}
		m.held[key] = a.ID
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryAppointments) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	if a.SlotHeld {
		delete(m.held, slotKeyOf(&a))
	}
	delete(m.appointments, id)
	return nil
}

func (m *MemoryAppointments) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.appointments)), nil
}

type MemoryUsers struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func (m *MemoryUsers) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range m.users {
		if u.Email == email && id != except {
			return true
		}
	}
	return false
}

func (m *MemoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email, primitive.NilObjectID) {
		return &DuplicateError{Field: "email"}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) first(match func(u *models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.first(func(u *models.User) bool { return u.Email == email })
}

func (m *MemoryUsers) FindDoctor(_ context.Context, firstName, lastName, department string) (*models.User, error) {
	return m.first(func(u *models.User) bool {
		return u.Role == models.RoleDoctor && u.FirstName == firstName &&
			u.LastName == lastName && u.DoctorDepartment == department
	})
}

func (m *MemoryUsers) ListByRole(_ context.Context, role string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.User, 0)
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (m *MemoryUsers) Update(_ context.Context, id primitive.ObjectID, patch UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Email != nil && m.emailTaken(*patch.Email, id) {
		return nil, &DuplicateError{Field: "email"}
	}
	patch.apply(&u)
	m.users[id] = u
	return &u, nil
}

func (m *MemoryUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryUsers) CountByRole(_ context.Context, role string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type MemoryMessages struct {
	mu       sync.Mutex
	messages []models.Message
}

func (m *MemoryMessages) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	m.messages = append(m.messages, *msg)
	return nil
}

// All returns a copy of the stored messages.
func (m *MemoryMessages) All() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.messages...)
}
