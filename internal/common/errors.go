package common

import "errors"

// Domain error taxonomy. Handlers translate these to HTTP statuses; nothing
// below the handler layer speaks HTTP.
var (
	// ErrInvalidCredentials covers a bad password or a user without a hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveUser is returned when the account exists but is disabled.
	ErrInactiveUser = errors.New("user account is inactive")

	// ErrDuplicateEmail is returned when registering an email that exists.
	ErrDuplicateEmail = errors.New("user already exists with this email")

	// ErrRateLimited throttles repeated attempts against one account.
	ErrRateLimited = errors.New("too many attempts, try again later")

	// ErrUnauthorized means no usable identity: missing, malformed or
	// expired token, or a token whose user no longer resolves.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means a valid identity without the needed permission.
	ErrForbidden = errors.New("insufficient permissions")

	// ErrNotFound doubles as the ownership-mismatch result. A caller asking
	// for another tenant's record gets the same answer as for a record that
	// does not exist, so existence is never leaked.
	ErrNotFound = errors.New("not found or access denied")

	// ErrNoActiveSubscription blocks campaign creation without entitlement.
	ErrNoActiveSubscription = errors.New("no active subscription found")

	// ErrInvalidSignature rejects a webhook before any state is written.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrVersionConflict reports a lost optimistic-concurrency race; the
	// caller should re-read and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrPlanNotFound is returned for an unknown or inactive plan.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanHasNoFeatures guards subscription creation: a subscription
	// with an empty entitlement snapshot is an invalid state.
	ErrPlanHasNoFeatures = errors.New("plan defines no features")
)
