package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account is an operator login for the administrative surface. Platform
// customers authenticate upstream; only operators hold local credentials.
type Account struct {
	gorm.Model
	Username     string `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Email        string `gorm:"column:email;not null"`
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword reports whether the given password matches the stored hash.
func (a *Account) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}
