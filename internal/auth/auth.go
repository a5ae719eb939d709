// Package auth contains handlers, services and models used to authenticate the clinic staff and
// to authorize their actions by role.
package auth

import "golang.org/x/crypto/bcrypt"

// EncryptPassword hashes the given password with bcrypt.
func EncryptPassword(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswords checks if the plain password matches the hashed one.
func ComparePasswords(hashedPass, plainPass string) bool {
	if hashedPass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPass), []byte(plainPass)) == nil
}
