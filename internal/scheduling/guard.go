package scheduling

import (
	"strings"
	"time"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

// RequireDoctor fails with an authorization error unless actor is a doctor.
func RequireDoctor(actor model.Actor) error {
	if !actor.IsDoctor() {
		return errors.Forbidden("doctor role required")
	}
	return nil
}

// RequirePatient fails unless actor is a patient with a patient profile.
func RequirePatient(actor model.Actor) error {
	if actor.Role != model.RolePatient || actor.PatientID == nil {
		return errors.Forbidden("patient profile required")
	}
	return nil
}

func requireFuture(at, now time.Time) error {
	if !at.After(now) {
		return errors.Validation("appointment date must be in the future", nil)
	}
	return nil
}

func requireMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.Validation("message is required", nil)
	}
	return nil
}

func requireDuration(minutes int) error {
	if minutes <= 0 {
		return errors.Validation("duration must be a positive number of minutes", nil)
	}
	return nil
}
