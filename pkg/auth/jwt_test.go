package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "consult-api", time.Hour)

	user := &model.User{Base: model.Base{ID: uuid.New()}, Email: "p@example.com", Role: model.RolePatient}
	patient := &model.Patient{Base: model.Base{ID: uuid.New()}, UserID: user.ID}

	token, err := svc.GenerateAccessToken(user, patient)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	actor := claims.Actor()
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, model.RolePatient, actor.Role)
	require.NotNil(t, actor.PatientID)
	assert.Equal(t, patient.ID, *actor.PatientID)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService("secret", "consult-api", time.Hour)
	user := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleDoctor}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService("other", "consult-api", time.Hour)
		token, err := other.GenerateAccessToken(user, nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := &jwtService{secret: []byte("secret"), issuer: "consult-api", expiry: time.Minute,
			now: func() time.Time { return time.Now().Add(-time.Hour) }}
		token, err := expired.GenerateAccessToken(user, nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
