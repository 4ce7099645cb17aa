package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment lifecycle values.
const (
	StatusPending  = "Pending"
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

// Departments is the fixed set of specialties a doctor can belong to.
var Departments = []string{
	"Pediatrics",
	"Orthopedics",
	"Cardiology",
	"Neurology",
	"Oncology",
	"Radiology",
	"Physical Therapy",
	"Dermatology",
	"ENT",
}

func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

func IsStatus(s string) bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// DoctorName is a snapshot of the doctor's name taken at booking time. Later
// renames of the doctor do not touch existing appointments.
type DoctorName struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
}

type Appointment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName       string             `bson:"firstName" json:"firstName"`
	LastName        string             `bson:"lastName" json:"lastName"`
	Email           string             `bson:"email" json:"email"`
	Phone           string             `bson:"phone" json:"phone"`
	NIC             string             `bson:"nic" json:"nic"`
	DOB             time.Time          `bson:"dob" json:"dob"`
	Gender          string             `bson:"gender" json:"gender"`
	AppointmentDate string             `bson:"appointment_date" json:"appointment_date"`
	SelectTime      string             `bson:"select_time" json:"select_time"`
	Department      string             `bson:"department" json:"department"`
	Doctor          DoctorName         `bson:"doctor" json:"doctor"`
	HasVisited      bool               `bson:"hasVisited" json:"hasVisited"`
	Address         string             `bson:"address" json:"address"`
	DoctorID        primitive.ObjectID `bson:"doctorId" json:"doctorId"`
	PatientID       primitive.ObjectID `bson:"patientId" json:"patientId"`
	Status          string             `bson:"status" json:"status"`

	// SlotHeld is true while the appointment occupies its slot (status is not
	// Rejected). The partial unique slot index only covers held appointments.
	SlotHeld bool `bson:"slotHeld" json:"-"`
}

// HoldsSlot reports whether an appointment in the given status blocks its slot.
func HoldsSlot(status string) bool {
	return status != StatusRejected
}

// StatusView is the patient-facing projection of an appointment.
type StatusView struct {
	ID              primitive.ObjectID `json:"_id"`
	AppointmentDate string             `json:"appointment_date"`
	SelectTime      string             `json:"select_time"`
	Department      string             `json:"department"`
	Doctor          DoctorName         `json:"doctor"`
	Status          string             `json:"status"`
}

func (a *Appointment) StatusView() StatusView {
	return StatusView{
		ID:              a.ID,
		AppointmentDate: a.AppointmentDate,
		SelectTime:      a.SelectTime,
		Department:      a.Department,
		Doctor:          a.Doctor,
		Status:          a.Status,
	}
}
