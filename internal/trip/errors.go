package trip

import "errors"

// Domain errors surfaced to the API boundary, where they map to HTTP
// statuses. Storage failures are wrapped and returned as-is; handlers treat
// anything outside this set as an internal error.
var (
	ErrRideNotFound         = errors.New("ride not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrRatingNotFound       = errors.New("rating not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInsufficientSeats    = errors.New("not enough seats available")
	ErrNotParticipant       = errors.New("user is not part of this ride")
	ErrRatingExists         = errors.New("rating already submitted for this ride")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAlreadyDriver        = errors.New("already registered as a driver")
	ErrDuplicateVehicle     = errors.New("license number or license plate already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
)
