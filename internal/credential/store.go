// Package credential resolves and caches users' decrypted platform secrets.
package credential

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/duke-git/lancet/v2/cryptor"
	"gorm.io/gorm"
)

// Record is one stored credential row. Secret material is encrypted at rest
// and only decrypted on read.
type Record struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"index;size:64;not null"`
	Platform  string    `gorm:"size:64;not null"`
	Secret    string    `gorm:"type:text;not null"` // base64(AES-GCM ciphertext)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the credentials table name.
func (Record) TableName() string { return "credentials" }

// Store loads credential rows for a user.
type Store interface {
	// ListByUser returns every credential row belonging to userID.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}

// GormStore is the database-backed credential store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ListByUser implements Store.
func (s *GormStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	var records []Record
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load credentials for user %s: %w", userID, err)
	}
	return records, nil
}

// Cipher encrypts and decrypts secret material with AES-GCM.
type Cipher struct {
	key []byte
}

// NewCipher creates a Cipher. The key must be 16, 24 or 32 bytes.
func NewCipher(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
		return &Cipher{key: key}, nil
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes, got %d", len(key))
	}
}

// Encrypt returns the base64-encoded AES-GCM ciphertext of plaintext.
func (c *Cipher) Encrypt(plaintext string) string {
	sealed := cryptor.AesGcmEncrypt([]byte(plaintext), c.key)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (plaintext string, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed secret ciphertext: %w", err)
	}
	// The underlying AEAD open panics on tampered input rather than
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to decrypt secret: %v", r)
		}
	}()
	opened := cryptor.AesGcmDecrypt(raw, c.key)
	if opened == nil {
		return "", fmt.Errorf("failed to decrypt secret")
	}
	return string(opened), nil
}
