package cache

import (
	"go.uber.org/zap"
)

// StoreFactory creates cache stores with fallback support
type StoreFactory struct {
	logger           *zap.Logger
	inMemoryFallback bool
}

// FactoryOption configures a StoreFactory
type FactoryOption func(*StoreFactory)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback enables or disables the in-memory fallback used when
// Redis is unreachable. Enabled by default.
func WithInMemoryFallback(enabled bool) FactoryOption {
	return func(f *StoreFactory) {
		f.inMemoryFallback = enabled
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(opts ...FactoryOption) *StoreFactory {
	f := &StoreFactory{
		logger:           zap.NewNop(),
		inMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to Redis
func (f *StoreFactory) CreateRedisStore(cfg RedisConfig) (Store, error) {
	store, err := NewRedisStore(cfg)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Record cache using Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("db", cfg.DB),
	)
	return store, nil
}

// CreateInMemoryStore creates a process-local store
func (f *StoreFactory) CreateInMemoryStore() Store {
	f.logger.Info("Record cache using in-memory store")
	return NewInMemoryStore()
}

// CreateStore prefers Redis and falls back to memory when allowed
func (f *StoreFactory) CreateStore(cfg RedisConfig) (Store, error) {
	store, err := f.CreateRedisStore(cfg)
	if err == nil {
		return store, nil
	}
	if !f.inMemoryFallback {
		return nil, err
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory record cache",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
