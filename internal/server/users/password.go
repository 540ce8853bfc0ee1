package users

import "golang.org/x/crypto/bcrypt"

// The password path is legacy: accounts created through OAuth never get a
// hash, and no login endpoint exercises it. Kept for rows that predate
// OAuth-only login.

// HashPassword returns a bcrypt hash of the given plaintext password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether candidate matches the user's stored hash.
// Users without a stored hash never match.
func (u *User) CheckPassword(candidate string) bool {
	if u.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(candidate)) == nil
}
