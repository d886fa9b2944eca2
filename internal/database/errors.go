package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrFlagAlreadySet = errors.New("flag already set")
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
