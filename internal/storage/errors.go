package storage

import "gorm.io/gorm"

// Repository errors shared by every backend. The gorm values are reused so
// errors.Is works the same against the postgres and in-memory stores.
var (
	ErrNotFound     = gorm.ErrRecordNotFound
	ErrDuplicateKey = gorm.ErrDuplicatedKey
)
