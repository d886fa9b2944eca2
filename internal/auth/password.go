package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the ten salt rounds existing hashes were created with.
const PasswordCost = 10

var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("apex-protocol-dummy"), PasswordCost)
	if err != nil {
		panic(err)
	}
	return h
})

func HashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), PasswordCost)
	return string(passwdHash), err
}

func VerifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

// RejectPassword spends the same bcrypt work as VerifyPassword for a login
// whose account does not exist. It always reports false.
func RejectPassword(passwd string) bool {
	bcrypt.CompareHashAndPassword(dummyHash(), []byte(passwd))
	return false
}
