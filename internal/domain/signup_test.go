package domain_test

import (
	"errors"
	"testing"

	"identity-sync-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupFlowTransitions(t *testing.T) {
	t.Run("Should walk collecting -> awaiting -> complete", func(t *testing.T) {
		flow := domain.NewSignupFlow("attempt-1")
		assert.Equal(t, domain.SignupCollectingCredentials, flow.State)

		require.NoError(t, flow.BeginVerification(&domain.SignUpAttempt{ID: "sua_1", ClientToken: "client_1", EmailAddress: "ada@example.com"}))
		assert.Equal(t, domain.SignupAwaitingVerification, flow.State)
		assert.Equal(t, "sua_1", flow.SignUpID)
		assert.Equal(t, "ada@example.com", flow.Email)
		assert.Equal(t, domain.SignUpAttempt{ID: "sua_1", ClientToken: "client_1", EmailAddress: "ada@example.com"}, flow.Pending())

		require.NoError(t, flow.Complete("sess_1", "token"))
		assert.Equal(t, domain.SignupComplete, flow.State)
		assert.Equal(t, "sess_1", flow.SessionID)
	})

	t.Run("Should reject completing before verification began", func(t *testing.T) {
		flow := domain.NewSignupFlow("attempt-2")
		err := flow.Complete("sess", "token")
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
		assert.Equal(t, domain.SignupCollectingCredentials, flow.State)
	})

	t.Run("Should reject beginning verification twice", func(t *testing.T) {
		flow := domain.NewSignupFlow("attempt-3")
		require.NoError(t, flow.BeginVerification(&domain.SignUpAttempt{ID: "sua_1", EmailAddress: "a@b.co"}))
		err := flow.BeginVerification(&domain.SignUpAttempt{ID: "sua_2", EmailAddress: "c@d.co"})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, "sua_1", flow.SignUpID)
	})

	t.Run("Should reject any transition out of complete", func(t *testing.T) {
		flow := domain.NewSignupFlow("attempt-4")
		require.NoError(t, flow.BeginVerification(&domain.SignUpAttempt{ID: "sua_1", EmailAddress: "a@b.co"}))
		require.NoError(t, flow.Complete("sess", "tok"))

		assert.ErrorIs(t, flow.BeginVerification(&domain.SignUpAttempt{ID: "sua_2", EmailAddress: "a@b.co"}), domain.ErrInvalidTransition)
		assert.ErrorIs(t, flow.Complete("sess", "tok"), domain.ErrInvalidTransition)
		assert.Equal(t, domain.SignupComplete, flow.State)
	})
}
