package adapter

import (
	"sync"

	"github.com/pkg/errors"

	"adops-backend/models"
)

var (
	registryMu sync.RWMutex
	registry   = map[models.PlatformCode]Provider{}
)

// Register регистрирует адаптер платформы, вызывается из NewHandler адаптера при старте
func Register(code models.PlatformCode, provider Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = provider
}

// Get возвращает адаптер по коду платформы из настроек издателя
func Get(code models.PlatformCode) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	provider, ok := registry[code]
	if !ok {
		return nil, errors.Errorf("адаптер платформы не зарегистрирован (%v)", code)
	}
	return provider, nil
}
