package errors

import "errors"

var (
	// ErrNoActiveSubscription indicates that the user has no active subscription
	ErrNoActiveSubscription = errors.New("no active subscription found")

	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionNotOwned indicates the subscription belongs to another user
	ErrSubscriptionNotOwned = errors.New("subscription does not belong to user")

	// ErrUserNotFound indicates that no user matched the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrUnknownProvider indicates a subscription references a provider this
	// service is not configured for
	ErrUnknownProvider = errors.New("unknown billing provider")
)
