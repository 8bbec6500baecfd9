package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/client"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/pkg/sdk"
)

func TestConfirmReplace_NonInteractiveProceeds(t *testing.T) {
	provider := client.NewProvider(client.Options{
		APIURL:      "http://127.0.0.1:1",
		Home:        t.TempDir(),
		Store:       client.StoreFile,
		Logger:      zerolog.Nop(),
		BearerToken: "existing",
	})
	t.Cleanup(func() { _ = provider.Close() })

	cfg := &config.GlobalConfig{Settings: config.Defaults(), ClientProvider: provider}
	cfg.NonInteractive = true

	proceed, err := confirmReplace(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, proceed)
}

func TestLoginError(t *testing.T) {
	invalid := errors.Join(sdk.ErrInvalidInput, errors.New("email is required"))
	assert.Same(t, invalid, loginError(invalid))

	rejected := loginError(&sdk.APIError{StatusCode: 401})
	assert.EqualError(t, rejected, "invalid email or password")

	stored := loginError(sdk.ErrStorageUnavailable)
	assert.ErrorIs(t, stored, sdk.ErrStorageUnavailable)
	assert.Contains(t, stored.Error(), "could not be stored")

	other := loginError(&sdk.APIError{StatusCode: 500})
	assert.Contains(t, other.Error(), "sign-in failed")
}
