package retry

import (
	"time"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

// WebservicePreset tunes the engine for municipal webservice calls. Only
// transport-level failures and remote 5xx retry; client errors and explicit
// business rejections fail on the first attempt.
func WebservicePreset() Options {
	return Options{
		MaxAttempts:       3,
		InitialDelay:      2 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          30 * time.Second,
		Predicate:         emission.IsRetryableWebservice,
	}
}

// EmailPreset tunes the engine for notification delivery.
func EmailPreset() Options {
	return Options{
		MaxAttempts:       5,
		InitialDelay:      5 * time.Second,
		BackoffMultiplier: 1.5,
		MaxDelay:          60 * time.Second,
		Predicate:         emission.IsRetryableDelivery,
	}
}

// PersistencePreset tunes the engine for database calls, retrying only the
// connection-refused/timeout/deadlock error classes.
func PersistencePreset() Options {
	return Options{
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          10 * time.Second,
		Predicate:         emission.IsRetryablePersistence,
	}
}
