package adapter

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"adops-backend/models"
)

func TestAdapterErrors(t *testing.T) {
	t.Run(`IsTransient check`, func(t *testing.T) {
		require.Equal(t, true, IsTransient(NewTransientError("площадка недоступна")))
		require.Equal(t, false, IsTransient(NewPermanentError("закупка отклонена")))
		require.Equal(t, false, IsTransient(errors.New("обычная ошибка")))
		require.Equal(t, false, IsTransient(nil))
	})

	t.Run(`IsTransient wrapped check`, func(t *testing.T) {
		wrapped := errors.Wrap(NewTransientError("площадка недоступна"), "ошибка вызова адаптера")
		require.Equal(t, true, IsTransient(wrapped))
	})

	t.Run(`error message check`, func(t *testing.T) {
		err := NewTransientError("недоступна (%v)", "mock")
		require.Equal(t, "transient: недоступна (mock)", err.Error())
	})
}

func TestRegistry(t *testing.T) {
	t.Run(`register and get check`, func(t *testing.T) {
		code := models.PlatformCode("test-registry")
		provider := &stubProvider{}
		Register(code, provider)
		got, err := Get(code)
		require.Nil(t, err)
		require.Equal(t, Provider(provider), got)
	})

	t.Run(`unknown platform check`, func(t *testing.T) {
		_, err := Get(models.PlatformCode("no-such-platform"))
		require.NotNil(t, err)
	})
}

type stubProvider struct {
	Provider
}
