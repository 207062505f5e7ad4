package usecase_test

import (
	"context"
	"testing"

	"identity-sync-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	t.Run("Should report liveness without probing", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(nil)
		assert.Equal(t, map[string]string{"status": "ok"}, uc.Check(context.Background()))
	})

	t.Run("Should report every dependency", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.Probe{
			"database": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errStore },
		})

		status, err := uc.Ready(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errStore)
		assert.Equal(t, map[string]string{
			"status":   "unavailable",
			"database": "ok",
			"redis":    "unavailable",
		}, status)
	})

	t.Run("Should be ready when every probe passes", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.Probe{
			"database": func(ctx context.Context) error { return nil },
		})
		status, err := uc.Ready(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", status["status"])
	})
}
