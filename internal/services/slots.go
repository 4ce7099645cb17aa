package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

// The daily grid: every half hour from 09:00 to 16:30 inclusive.
const (
	firstSlotHour = 9
	lastSlotHour  = 16
	slotMinutes   = 30
)

var slotGrid = buildSlotGrid()

func buildSlotGrid() []string {
	var slots []string
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		for m := 0; m < 60; m += slotMinutes {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// TimeSlots returns a copy of the daily slot grid in ascending order.
func TimeSlots() []string {
	return append([]string(nil), slotGrid...)
}

// IsSlot reports whether t is one of the grid times.
func IsSlot(t string) bool {
	for _, s := range slotGrid {
		if s == t {
			return true
		}
	}
	return false
}

// SlotService answers availability questions. It only reads the store.
type SlotService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
}

func NewSlotService(appointments repository.AppointmentRepository, users repository.UserRepository) *SlotService {
	return &SlotService{appointments: appointments, users: users}
}

func normalizeDate(date string) (string, error) {
	t, err := parseDate(date)
	if err != nil {
		return "", validationError("Invalid Appointment Date")
	}
	return t.Format(dateLayout), nil
}

// BookedTimes lists the times held by non-Rejected appointments for the
// doctor's day, ascending.
func (s *SlotService) BookedTimes(ctx context.Context, department string, doctorID primitive.ObjectID, date string) ([]string, error) {
	if !models.IsDepartment(department) {
		return nil, validationError("Invalid Department!")
	}
	day, err := normalizeDate(date)
	if err != nil {
		return nil, err
	}
	times, err := s.appointments.HeldTimes(ctx, department, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load held times: %w", err)
	}
	return times, nil
}

// AvailableSlots returns the grid slots with no non-Rejected appointment for
// (department, doctor, date), ascending. Recomputed on every call.
func (s *SlotService) AvailableSlots(ctx context.Context, department string, doctorID primitive.ObjectID, date string) ([]string, error) {
	booked, err := s.BookedTimes(ctx, department, doctorID, date)
	if err != nil {
		return nil, err
	}
	return freeSlots(booked), nil
}

func freeSlots(booked []string) []string {
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	free := make([]string, 0, len(slotGrid))
	for _, slot := range slotGrid {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free
}

// heldSlots is the complement of free within the grid, ascending.
func heldSlots(free []string) []string {
	open := make(map[string]bool, len(free))
	for _, t := range free {
		open[t] = true
	}
	held := make([]string, 0, len(slotGrid)-len(free))
	for _, slot := range slotGrid {
		if !open[slot] {
			held = append(held, slot)
		}
	}
	return held
}

// DoctorDay is a doctor's booked and free slots for one date.
type DoctorDay struct {
	DoctorID  primitive.ObjectID `json:"doctorId"`
	Booked    []string           `json:"bookedTimes"`
	Available []string           `json:"availableTimes"`
}

// DoctorDayByName resolves the doctor by name within the department and
// returns the day's slot split.
func (s *SlotService) DoctorDayByName(ctx context.Context, department, firstName, lastName, date string) (*DoctorDay, error) {
	if !allSet(department, firstName, lastName, date) {
		return nil, validationError("appointment_date, department, doctor_firstName and doctor_lastName are required")
	}
	if !models.IsDepartment(department) {
		return nil, validationError("Invalid Department!")
	}
	doctor, err := s.users.FindDoctor(ctx, firstName, lastName, department)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(MsgDoctorNotFound)
		}
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	free, err := s.AvailableSlots(ctx, department, doctor.ID, date)
	if err != nil {
		return nil, err
	}
	return &DoctorDay{DoctorID: doctor.ID, Booked: heldSlots(free), Available: free}, nil
}
