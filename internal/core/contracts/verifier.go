package contracts

import "context"

// PhoneVerifier sends and checks one-time codes for phone registration.
type PhoneVerifier interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (bool, error)
}
