package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/metrics"
	"storefront/storebot/internal/repository"
	"storefront/storebot/pkg/keylock"
)

const (
	DefaultSafetyMargin = 300 * time.Second

	tokenValueKey   = "commerce:token:value"
	tokenExpiresKey = "commerce:token:expires_at"
)

func cartKeys(userID string) (valueKey, expiresKey string) {
	prefix := "commerce:cart:" + userID
	return prefix + ":id", prefix + ":expires_at"
}

// AuthToken is the process-wide bearer credential for the commerce API.
type AuthToken struct {
	Token     string
	ExpiresAt time.Time
}

// CartHandle is the remote cart bound to one end user.
type CartHandle struct {
	CartID    string
	ExpiresAt time.Time
}

// CacheEntry is a cached value and its application-managed expiry.
type CacheEntry struct {
	Value     string
	ExpiresAt time.Time
}

type LookupStatus int

const (
	LookupMiss LookupStatus = iota
	LookupStale
	LookupHit
)

func (s LookupStatus) String() string {
	switch s {
	case LookupHit:
		return "hit"
	case LookupStale:
		return "stale"
	default:
		return "miss"
	}
}

// Lookup is the result of reading a cache entry. Entry is set for Hit and Stale.
type Lookup struct {
	Status LookupStatus
	Entry  CacheEntry
}

// CacheManager keeps a usable AuthToken and per-user CartHandle, refreshing
// them from the commerce API when absent or too close to expiry.
type CacheManager interface {
	GetOrRefreshToken(ctx context.Context) (AuthToken, error)
	// GetOrCreateCart reports created=true when this call created the cart.
	GetOrCreateCart(ctx context.Context, userID string, token AuthToken) (handle CartHandle, created bool, err error)
	InvalidateCart(ctx context.Context, userID string) error
	LookupToken(ctx context.Context) (Lookup, error)
	LookupCart(ctx context.Context, userID string) (Lookup, error)
}

type CacheOption func(*cacheManager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(m *cacheManager) { m.now = now }
}

type cacheManager struct {
	store        repository.StateStore
	client       commerce.Client
	safetyMargin time.Duration
	locks        *keylock.Locker
	now          func() time.Time
	logger       *zap.Logger
}

func NewCacheManager(
	store repository.StateStore,
	client commerce.Client,
	safetyMargin time.Duration,
	logger *zap.Logger,
	opts ...CacheOption,
) CacheManager {
	if safetyMargin <= 0 {
		safetyMargin = DefaultSafetyMargin
	}
	m := &cacheManager{
		store:        store,
		client:       client,
		safetyMargin: safetyMargin,
		locks:        keylock.New(),
		now:          time.Now,
		logger:       logger.Named("cache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *cacheManager) GetOrRefreshToken(ctx context.Context) (AuthToken, error) {
	unlock := m.locks.Lock(tokenValueKey)
	defer unlock()

	lookup, err := m.LookupToken(ctx)
	if err != nil {
		return AuthToken{}, err
	}
	if lookup.Status == LookupHit {
		return AuthToken{Token: lookup.Entry.Value, ExpiresAt: lookup.Entry.ExpiresAt}, nil
	}

	tok, err := m.client.FetchToken(ctx)
	if err != nil {
		return AuthToken{}, fmt.Errorf("fetch token: %w", err)
	}
	metrics.IncCacheRefresh("token")

	entry := CacheEntry{Value: tok.AccessToken, ExpiresAt: tok.ExpiresAt}
	if err := m.writeEntry(ctx, tokenValueKey, tokenExpiresKey, entry); err != nil {
		return AuthToken{}, fmt.Errorf("store token: %w", err)
	}
	m.warnIfShortLived("token", entry.ExpiresAt)
	m.logger.Debug("auth token refreshed", zap.String("previous", lookup.Status.String()))

	return AuthToken{Token: entry.Value, ExpiresAt: truncate(entry.ExpiresAt)}, nil
}

func (m *cacheManager) GetOrCreateCart(ctx context.Context, userID string, token AuthToken) (CartHandle, bool, error) {
	if userID == "" {
		return CartHandle{}, false, ErrEmptyUserID
	}
	valueKey, expiresKey := cartKeys(userID)

	unlock := m.locks.Lock(valueKey)
	defer unlock()

	lookup, err := m.LookupCart(ctx, userID)
	if err != nil {
		return CartHandle{}, false, err
	}
	if lookup.Status == LookupHit {
		return CartHandle{CartID: lookup.Entry.Value, ExpiresAt: lookup.Entry.ExpiresAt}, false, nil
	}

	ref, err := m.client.CreateCart(ctx, token.Token, userID)
	if err != nil {
		return CartHandle{}, false, fmt.Errorf("create cart: %w", err)
	}
	metrics.IncCacheRefresh("cart")

	entry := CacheEntry{Value: ref.ID, ExpiresAt: ref.ExpiresAt}
	if err := m.writeEntry(ctx, valueKey, expiresKey, entry); err != nil {
		return CartHandle{}, false, fmt.Errorf("store cart: %w", err)
	}
	m.warnIfShortLived("cart", entry.ExpiresAt)
	m.logger.Debug("cart created",
		zap.String("user_id", userID),
		zap.String("cart_id", ref.ID),
		zap.String("previous", lookup.Status.String()),
	)

	return CartHandle{CartID: entry.Value, ExpiresAt: truncate(entry.ExpiresAt)}, true, nil
}

func (m *cacheManager) InvalidateCart(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	valueKey, expiresKey := cartKeys(userID)

	unlock := m.locks.Lock(valueKey)
	defer unlock()

	if err := m.store.Delete(ctx, valueKey, expiresKey); err != nil {
		return fmt.Errorf("invalidate cart: %w", err)
	}
	return nil
}

func (m *cacheManager) LookupToken(ctx context.Context) (Lookup, error) {
	lookup, err := m.readEntry(ctx, tokenValueKey, tokenExpiresKey)
	if err != nil {
		return Lookup{}, err
	}
	metrics.IncCacheLookup("token", lookup.Status.String())
	return lookup, nil
}

func (m *cacheManager) LookupCart(ctx context.Context, userID string) (Lookup, error) {
	valueKey, expiresKey := cartKeys(userID)
	lookup, err := m.readEntry(ctx, valueKey, expiresKey)
	if err != nil {
		return Lookup{}, err
	}
	metrics.IncCacheLookup("cart", lookup.Status.String())
	return lookup, nil
}

// readEntry loads the value and expiry pair. Unless both halves are present
// and the expiry parses, the entry counts as a miss.
func (m *cacheManager) readEntry(ctx context.Context, valueKey, expiresKey string) (Lookup, error) {
	vals, err := m.store.MGet(ctx, valueKey, expiresKey)
	if err != nil {
		return Lookup{}, fmt.Errorf("read cache %s: %w", valueKey, err)
	}
	if len(vals) != 2 {
		return Lookup{}, fmt.Errorf("read cache %s: got %d values", valueKey, len(vals))
	}

	value, rawExpiry := vals[0], vals[1]
	if len(value) == 0 || len(rawExpiry) == 0 {
		if len(value) != 0 || len(rawExpiry) != 0 {
			m.logger.Debug("partial cache entry treated as miss", zap.String("key", valueKey))
		}
		return Lookup{Status: LookupMiss}, nil
	}

	sec, err := strconv.ParseInt(string(rawExpiry), 10, 64)
	if err != nil {
		m.logger.Debug("unparsable cache expiry treated as miss",
			zap.String("key", expiresKey),
			zap.ByteString("raw", rawExpiry),
		)
		return Lookup{Status: LookupMiss}, nil
	}

	entry := CacheEntry{Value: string(value), ExpiresAt: time.Unix(sec, 0)}
	if m.usable(entry.ExpiresAt) {
		return Lookup{Status: LookupHit, Entry: entry}, nil
	}
	return Lookup{Status: LookupStale, Entry: entry}, nil
}

func (m *cacheManager) writeEntry(ctx context.Context, valueKey, expiresKey string, entry CacheEntry) error {
	return m.store.MSet(ctx, map[string][]byte{
		valueKey:   []byte(entry.Value),
		expiresKey: []byte(strconv.FormatInt(entry.ExpiresAt.Unix(), 10)),
	})
}

// usable: now + margin must be strictly before expiry.
func (m *cacheManager) usable(expiresAt time.Time) bool {
	return m.now().Add(m.safetyMargin).Before(expiresAt)
}

func (m *cacheManager) warnIfShortLived(kind string, expiresAt time.Time) {
	if !m.usable(expiresAt) {
		m.logger.Warn("freshly issued entry expires within safety margin",
			zap.String("kind", kind),
			zap.Time("expires_at", expiresAt),
			zap.Duration("safety_margin", m.safetyMargin),
		)
	}
}

// truncate drops sub-second precision so returned values match what a
// later read of the cache yields.
func truncate(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0)
}

var _ CacheManager = (*cacheManager)(nil)
