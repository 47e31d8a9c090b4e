package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusPending   ConsultationStatus = "pending"
	ConsultationStatusScheduled ConsultationStatus = "scheduled"
	ConsultationStatusConfirmed ConsultationStatus = "confirmed"
	ConsultationStatusCancelled ConsultationStatus = "cancelled"
)

// ParseConsultationStatus rejects anything outside the closed set of states.
func ParseConsultationStatus(s string) (ConsultationStatus, error) {
	switch st := ConsultationStatus(s); st {
	case ConsultationStatusPending, ConsultationStatusScheduled,
		ConsultationStatusConfirmed, ConsultationStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown consultation status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s ConsultationStatus) Terminal() bool {
	return s == ConsultationStatusConfirmed || s == ConsultationStatusCancelled
}

type ConsultationRequest struct {
	Base
	PatientID       uuid.UUID          `db:"patient_id" json:"patient_id"`
	Message         string             `db:"message" json:"message"`
	Status          ConsultationStatus `db:"status" json:"status"`
	AppointmentDate *time.Time         `db:"appointment_date" json:"appointment_date"`
}

type SubmitConsultationRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// ScheduleConsultationRequest carries either an RFC3339 timestamp or a
// "YYYY-MM-DD HH:MM" wall-clock time in the scheduling timezone.
type ScheduleConsultationRequest struct {
	AppointmentDate string `json:"appointment_date" binding:"required"`
}
