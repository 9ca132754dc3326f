package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"

	"panchayat-connect/internal/models"
)

var ErrInvalidContactKey = errors.New("invalid contact key: must be base64 of 32 bytes")

// ContactCipher protects reporter contact details at rest. A cipher built
// from an empty key is disabled and passes values through.
type ContactCipher struct {
	key []byte
}

// NewContactCipher decodes a base64 AES-256 key. An empty key yields a
// disabled cipher.
func NewContactCipher(keyBase64 string) (*ContactCipher, error) {
	if keyBase64 == "" {
		return &ContactCipher{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidContactKey
	}
	return &ContactCipher{key: key}, nil
}

// Enabled reports whether a key is configured.
func (c *ContactCipher) Enabled() bool {
	return c != nil && len(c.key) > 0
}

// Seal returns an encrypted copy of contact. Empty fields stay empty.
func (c *ContactCipher) Seal(contact *models.Contact) (*models.Contact, error) {
	if contact == nil || !c.Enabled() {
		return contact, nil
	}
	out := &models.Contact{}
	var err error
	if out.Phone, err = c.seal(contact.Phone); err != nil {
		return nil, fmt.Errorf("seal phone: %w", err)
	}
	if out.Email, err = c.seal(contact.Email); err != nil {
		return nil, fmt.Errorf("seal email: %w", err)
	}
	return out, nil
}

// Open returns a decrypted copy of contact.
func (c *ContactCipher) Open(contact *models.Contact) (*models.Contact, error) {
	if contact == nil {
		return nil, nil
	}
	if !c.Enabled() {
		if IsSealed(contact.Phone) || IsSealed(contact.Email) {
			return nil, ErrInvalidKeySize
		}
		return contact, nil
	}
	out := &models.Contact{}
	var err error
	if out.Phone, err = Decrypt(contact.Phone, c.key); err != nil {
		return nil, fmt.Errorf("open phone: %w", err)
	}
	if out.Email, err = Decrypt(contact.Email, c.key); err != nil {
		return nil, fmt.Errorf("open email: %w", err)
	}
	return out, nil
}

func (c *ContactCipher) seal(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return Encrypt(value, c.key)
}
