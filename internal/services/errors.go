package services

import (
	"errors"
	"fmt"

	"github.com/nivram710/snapline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Sentinel errors for the messaging and notification core. Handlers map these
// to HTTP statuses; everything else surfaces as a retryable transient failure.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrSelfReference  = errors.New("self reference")
	ErrValidation     = errors.New("validation failed")
	ErrExpired        = errors.New("story expired or inactive")
	ErrNotParticipant = errors.New("not a conversation participant")
	ErrTransient      = errors.New("transient storage failure")
)

// Validation refinements, all matching errors.Is(err, ErrValidation).
var (
	ErrMissingContent     = fmt.Errorf("%w: text message requires content", ErrValidation)
	ErrMissingMedia       = fmt.Errorf("%w: media message requires a media reference", ErrValidation)
	ErrUnknownMessageType = fmt.Errorf("%w: unknown message type", ErrValidation)
)

// storeErr maps driver-level not-found results onto ErrNotFound, malformed
// ids onto ErrValidation, and wraps everything else as transient so callers
// know a retry is safe.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, repositories.ErrInvalidID) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
