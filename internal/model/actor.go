package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Actor is the authenticated party performing an operation. PatientID is set
// only when the account owns a patient profile.
type Actor struct {
	ID        uuid.UUID  `json:"id"`
	Role      Role       `json:"role"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

func (a Actor) IsDoctor() bool {
	return a.Role == RoleDoctor
}

// Owns reports whether the actor is the patient identified by patientID.
func (a Actor) Owns(patientID uuid.UUID) bool {
	return a.Role == RolePatient && a.PatientID != nil && *a.PatientID == patientID
}
