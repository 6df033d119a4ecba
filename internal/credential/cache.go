package credential

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NotFoundError reports a missing or undecryptable secret. The platform name
// is carried so the UI can prompt the user to reconnect that integration.
type NotFoundError struct {
	UserID   string
	Platform string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no credential for platform %q (user %s)", e.Platform, e.UserID)
}

// IsNotFound checks whether err is a missing-credential error.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// Cache resolves decrypted secrets with a per-user in-process cache.
// The first access for a user bulk-loads and decrypts all of that user's
// credentials in one query; later lookups are map hits. Entries live until
// Invalidate or process restart; credential mutation paths outside this
// package must call Invalidate.
type Cache struct {
	mu     sync.RWMutex
	byUser map[string]map[string]string // userID -> canonical platform -> secret
	store  Store
	cipher *Cipher
	logger *zap.Logger
}

// NewCache creates a credential cache over store, decrypting with cipher.
func NewCache(store Store, cipher *Cipher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		byUser: make(map[string]map[string]string),
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

// Get returns the decrypted secret for a user's platform. The platform name
// may be any registered alias.
func (c *Cache) Get(ctx context.Context, userID, platform string) (string, error) {
	canonical := Canonical(platform)

	c.mu.RLock()
	secrets, loaded := c.byUser[userID]
	c.mu.RUnlock()

	if !loaded {
		var err error
		if secrets, err = c.load(ctx, userID); err != nil {
			return "", err
		}
	}

	secret, ok := secrets[canonical]
	if !ok {
		return "", &NotFoundError{UserID: userID, Platform: platform}
	}
	return secret, nil
}

// Invalidate drops a user's cached secrets so the next access reloads them.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byUser, userID)
}

// Prewarm loads credentials for the given users ahead of their first run.
// Per-user failures are logged and do not abort the batch.
func (c *Cache) Prewarm(ctx context.Context, userIDs []string) {
	for _, userID := range userIDs {
		if _, err := c.load(ctx, userID); err != nil {
			c.logger.Warn("credential prewarm failed for user",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// load bulk-loads and decrypts one user's credentials, replacing any cached
// entry for that user.
func (c *Cache) load(ctx context.Context, userID string) (map[string]string, error) {
	records, err := c.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	secrets := make(map[string]string, len(records))
	for _, rec := range records {
		plaintext, err := c.cipher.Decrypt(rec.Secret)
		if err != nil {
			c.logger.Warn("skipping undecryptable credential",
				zap.String("user_id", userID), zap.String("platform", rec.Platform), zap.Error(err))
			continue
		}
		secrets[Canonical(rec.Platform)] = plaintext
	}

	c.mu.Lock()
	c.byUser[userID] = secrets
	c.mu.Unlock()
	return secrets, nil
}
