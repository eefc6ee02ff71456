package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/infrastructure/logger"
)

// DefaultTTL bounds how long a cached read may outlive a write made by
// another process that does not share the store.
const DefaultTTL = 5 * time.Minute

// CachedClient is a read-through cache in front of a record.Client.
//
// Every table has a version counter. Read keys embed the table's current
// version, and each write bumps the version of the written table and of the
// tables that reference it, so stale entries are never read again and
// simply expire.
type CachedClient struct {
	inner      record.Client
	store      Store
	ttl        time.Duration
	dependents map[string][]string
	logger     *zap.Logger
}

// ClientOption configures a CachedClient
type ClientOption func(*CachedClient)

// WithTTL sets the lifetime of cached reads
func WithTTL(ttl time.Duration) ClientOption {
	return func(c *CachedClient) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithDependents sets which tables embed data of another table
// (see persistence.Schemas.Dependents).
func WithDependents(dependents map[string][]string) ClientOption {
	return func(c *CachedClient) {
		c.dependents = dependents
	}
}

// WithClientLogger sets the logger used when no request logger is present
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *CachedClient) {
		c.logger = l
	}
}

// NewCachedClient wraps inner with a cache kept in store
func NewCachedClient(inner record.Client, store Store, opts ...ClientOption) *CachedClient {
	c := &CachedClient{
		inner:  inner,
		store:  store,
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ record.Client = (*CachedClient)(nil)

// FetchRecords implements record.Client
func (c *CachedClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	params = params.Normalize()
	key, ok := c.readKey(ctx, table, "fetch", params)
	if ok {
		var recs []record.Record
		if c.load(ctx, key, &recs) {
			return recs, nil
		}
	}

	recs, err := c.inner.FetchRecords(ctx, table, params)
	if err != nil {
		return nil, err
	}
	if ok {
		c.save(ctx, key, recs)
	}
	return recs, nil
}

// GetRecordByID implements record.Client. Misses are not cached.
func (c *CachedClient) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	key, ok := c.readKey(ctx, table, "get", struct {
		ID     int64    `json:"id"`
		Fields []string `json:"fields"`
	}{id, fields})
	if ok {
		var rec record.Record
		if c.load(ctx, key, &rec) && rec != nil {
			return rec, nil
		}
	}

	rec, err := c.inner.GetRecordByID(ctx, table, id, fields)
	if err != nil {
		return nil, err
	}
	if ok {
		c.save(ctx, key, rec)
	}
	return rec, nil
}

// CreateRecord implements record.Client
func (c *CachedClient) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	created, err := c.inner.CreateRecord(ctx, table, rec)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, table)
	return created, nil
}

// UpdateRecord implements record.Client
func (c *CachedClient) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	updated, err := c.inner.UpdateRecord(ctx, table, id, rec)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, table)
	return updated, nil
}

// DeleteRecord implements record.Client
func (c *CachedClient) DeleteRecord(ctx context.Context, table string, id int64) error {
	if err := c.inner.DeleteRecord(ctx, table, id); err != nil {
		return err
	}
	c.invalidate(ctx, table)
	return nil
}

func versionKey(table string) string {
	return "version:" + table
}

// readKey builds the cache key of a read. ok is false when the table
// version cannot be read, in which case the read bypasses the cache.
func (c *CachedClient) readKey(ctx context.Context, table, op string, params any) (string, bool) {
	version, err := c.version(ctx, table)
	if err != nil {
		c.log(ctx).Warn("Record cache unavailable", zap.String("table", table), zap.Error(err))
		return "", false
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("records:%s:v%d:%s:%s", table, version, op, hex.EncodeToString(sum[:12])), true
}

func (c *CachedClient) version(ctx context.Context, table string) (int64, error) {
	raw, found, err := c.store.Get(ctx, versionKey(table))
	if err != nil || !found {
		return 0, err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt version for %s: %w", table, err)
	}
	return v, nil
}

func (c *CachedClient) load(ctx context.Context, key string, v any) bool {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log(ctx).Warn("Record cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		c.log(ctx).Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedClient) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log(ctx).Warn("Record cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedClient) invalidate(ctx context.Context, table string) {
	tables := append([]string{table}, c.dependents[table]...)
	for _, t := range tables {
		if _, err := c.store.Incr(ctx, versionKey(t)); err != nil {
			c.log(ctx).Warn("Record cache invalidation failed", zap.String("table", t), zap.Error(err))
		}
	}
}

func (c *CachedClient) log(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return c.logger
}
