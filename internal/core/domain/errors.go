package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("user already exists with this phone number")
	ErrChatNotFound          = errors.New("chat not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrFriendRequestExists   = errors.New("friend request already exists")
	ErrInvalidTransition     = errors.New("friend request already resolved")
	ErrForbidden             = errors.New("not authorized")
	ErrOTPInvalid            = errors.New("invalid or expired verification code")
	ErrOTPUnavailable        = errors.New("phone verification is not configured")

	// Connection lifecycle
	ErrNotAnnounced     = errors.New("connection has not announced an identity")
	ErrIdentityMismatch = errors.New("announced identity does not match token")
	ErrSessionClosed    = errors.New("connection closed")
	ErrSuperseded       = fmt.Errorf("%w: replaced by a newer connection", ErrSessionClosed)
	ErrUnknownFrame     = errors.New("unknown frame type")
)
