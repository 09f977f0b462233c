package commands

import (
	"sync"
	"time"
)

// ConfigPersister implements the auth.TokenPersister interface on top of the
// CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// SaveAccessToken stores a refreshed access token and its expiry.
func (p *ConfigPersister) SaveAccessToken(token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	config.AccessToken = token
	if !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	now := time.Now()
	config.LastRefreshed = &now

	return saveConfigStruct(config)
}
