package services

import (
	"sentimeter/internal/crypto"
	"sentimeter/internal/models"
)

// EncryptionService wraps the cipher with domain-specific methods.
type EncryptionService struct {
	cipher *crypto.Cipher
}

func NewEncryptionService(encryptionKey, blindIndexKey []byte) (*EncryptionService, error) {
	c, err := crypto.NewCipher(encryptionKey, blindIndexKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{cipher: c}, nil
}

// EncryptUser encrypts sensitive user fields before storing in DB.
func (s *EncryptionService) EncryptUser(user *models.User) error {
	encrypted, err := s.cipher.Encrypt(user.Email)
	if err != nil {
		return err
	}
	user.EmailBlindIndex = s.cipher.BlindIndex(user.Email)
	user.Email = encrypted
	return nil
}

// DecryptUser decrypts sensitive user fields after retrieving from DB.
func (s *EncryptionService) DecryptUser(user *models.User) error {
	email, err := s.cipher.Decrypt(user.Email)
	if err != nil {
		return err
	}
	user.Email = email
	return nil
}

// EncryptEntryBody encrypts a journal body for storage.
func (s *EncryptionService) EncryptEntryBody(body string) (string, error) {
	return s.cipher.Encrypt(body)
}

// DecryptEntryBody recovers the plaintext journal body.
func (s *EncryptionService) DecryptEntryBody(stored string) (string, error) {
	return s.cipher.Decrypt(stored)
}

// EmailBlindIndex generates a blind index for email lookup.
func (s *EncryptionService) EmailBlindIndex(email string) string {
	return s.cipher.BlindIndex(email)
}
