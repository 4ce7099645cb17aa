package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles stored on User.Role.
const (
	RoleAdmin   = "Admin"
	RolePatient = "Patient"
	RoleDoctor  = "Doctor"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Avatar points at a doctor's picture in the blob store.
type Avatar struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
}

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName        string             `bson:"firstName" json:"firstName"`
	LastName         string             `bson:"lastName" json:"lastName"`
	Email            string             `bson:"email" json:"email"`
	Phone            string             `bson:"phone" json:"phone"`
	NIC              string             `bson:"nic" json:"nic"`
	DOB              time.Time          `bson:"dob" json:"dob"`
	Gender           string             `bson:"gender" json:"gender"`
	Password         string             `bson:"password" json:"-"` // bcrypt hash, never serialised
	Role             string             `bson:"role" json:"role"`
	DoctorDepartment string             `bson:"doctorDepartment,omitempty" json:"doctorDepartment,omitempty"`
	DocAvatar        *Avatar            `bson:"docAvatar,omitempty" json:"docAvatar,omitempty"`
}

// FullName is how doctors are displayed and matched on booking forms.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
