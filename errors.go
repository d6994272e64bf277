package cache

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrNoKeys is returned by Policy.Evict when nothing is tracked. It is
// not observable through Cache, which checks capacity before evicting.
var ErrNoKeys = errors.New("no keys available to evict")

// InvalidInputError reports malformed input. The failed operation has no
// side effects.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

// KeyNotFoundError reports a key absent from storage.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string { return fmt.Sprintf("key %q not found", e.Key) }

// KeyExpiredError reports a key that was present but expired. The entry
// is purged as part of raising this error, so a second lookup of the
// same key reports KeyNotFoundError.
type KeyExpiredError struct {
	Key       string
	ExpiredAt time.Time
}

func (e *KeyExpiredError) Error() string {
	return fmt.Sprintf("key %q expired at %s", e.Key, e.ExpiredAt.Format(time.RFC3339Nano))
}

func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *KeyNotFoundError
	return errors.As(err, &e)
}

func IsExpired(err error) bool {
	var e *KeyExpiredError
	return errors.As(err, &e)
}

// CheckKey validates a storage key. Keys are non-empty strings.
func CheckKey(key string) error {
	if key == "" {
		return &InvalidInputError{Reason: "key must not be empty"}
	}
	return nil
}
