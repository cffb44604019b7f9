package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/pkg/logging"
)

type RegisterInput struct {
	PhoneNumber  string `json:"phoneNumber"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
	SessionID    string `json:"sessionId"`
	Code         string `json:"code,omitempty"`
}

type UserService struct {
	log      *slog.Logger
	repo     domain.UserRepository
	verifier contracts.PhoneVerifier
	online   contracts.PresenceReader
	lastSeen contracts.PresenceStore
}

// NewUserService wires the user gateway. verifier may be nil, in which case
// registration does not require a verification code.
func NewUserService(
	log *slog.Logger,
	repo domain.UserRepository,
	verifier contracts.PhoneVerifier,
	online contracts.PresenceReader,
	lastSeen contracts.PresenceStore,
) *UserService {
	return &UserService{
		log:      log,
		repo:     repo,
		verifier: verifier,
		online:   online,
		lastSeen: lastSeen,
	}
}

// RequestOTP sends a verification code to the phone number.
func (s *UserService) RequestOTP(ctx context.Context, phone string) error {
	if s.verifier == nil {
		return domain.ErrOTPUnavailable
	}
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return err
	}
	if err := s.verifier.SendOTP(ctx, e164(normalized)); err != nil {
		s.log.ErrorContext(ctx, "user - request otp - send failed", logging.Err(err))
		return fmt.Errorf("send verification code: %w", err)
	}
	s.log.InfoContext(ctx, "user - request otp - sent")
	return nil
}

// Register validates the input, checks the verification code when a verifier
// is configured, and creates the account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	phone, err := domain.NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	name, err := domain.ValidateName(in.Name)
	if err != nil {
		return nil, err
	}
	image, err := domain.ValidateProfileImage(in.ProfileImage)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, fmt.Errorf("%w: session ID is required", domain.ErrValidation)
	}
	if s.verifier != nil {
		ok, err := s.verifier.VerifyOTP(ctx, e164(phone), in.Code)
		if err != nil {
			span.RecordError(err)
			s.log.ErrorContext(ctx, "user - register - verify otp error", logging.Err(err))
			return nil, fmt.Errorf("verification service error: %w", err)
		}
		if !ok {
			return nil, domain.ErrOTPInvalid
		}
	}
	u := &domain.User{
		ID:           domain.NewUserID(),
		PhoneNumber:  phone,
		Name:         name,
		ProfileImage: image,
		SessionID:    in.SessionID,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			span.RecordError(err)
			s.log.ErrorContext(ctx, "user - register - create user failed", logging.Err(err))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID.String()))
	s.log.InfoContext(ctx, "user - register - success", logging.User(u.ID.String()))
	return u, nil
}

// ListUsers returns everyone but the caller, online users first, then by name.
func (s *UserService) ListUsers(ctx context.Context, caller domain.UserID) ([]domain.UserSummary, error) {
	users, err := s.repo.ListUsers(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := s.summarize(ctx, users)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsOnline != out[j].IsOnline {
			return out[i].IsOnline
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id domain.UserID) (*domain.UserSummary, error) {
	if id == "" {
		return nil, domain.ErrInvalidUserID
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := s.summarize(ctx, []domain.User{*u})[0]
	return &sum, nil
}

// Summaries resolves ids to public views. Unknown ids are absent.
func (s *UserService) Summaries(ctx context.Context, ids []domain.UserID) (map[domain.UserID]domain.UserSummary, error) {
	byID, err := s.repo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(byID))
	for _, u := range byID {
		users = append(users, u)
	}
	out := make(map[domain.UserID]domain.UserSummary, len(users))
	for _, sum := range s.summarize(ctx, users) {
		out[sum.ID] = sum
	}
	return out, nil
}

// DescribeRequests attaches sender and recipient summaries to each request.
// A party that no longer resolves is left out of its view.
func (s *UserService) DescribeRequests(ctx context.Context, reqs []domain.FriendRequest) ([]FriendRequestView, error) {
	if len(reqs) == 0 {
		return []FriendRequestView{}, nil
	}
	ids := make([]domain.UserID, 0, 2*len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.FromUserID, r.ToUserID)
	}
	byID, err := s.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]FriendRequestView, len(reqs))
	for i, r := range reqs {
		out[i] = FriendRequestView{FriendRequest: r}
		if u, ok := byID[r.FromUserID]; ok {
			out[i].FromUser = &u
		}
		if u, ok := byID[r.ToUserID]; ok {
			out[i].ToUser = &u
		}
	}
	return out, nil
}

func (s *UserService) summarize(ctx context.Context, users []domain.User) []domain.UserSummary {
	ids := make([]domain.UserID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var online map[domain.UserID]bool
	if s.online != nil {
		online = s.online.Online(ids)
	}
	var seen map[domain.UserID]time.Time
	if s.lastSeen != nil && len(ids) > 0 {
		m, err := s.lastSeen.LastSeen(ctx, ids)
		if err != nil {
			// Last seen is advisory; the listing still succeeds.
			s.log.WarnContext(ctx, "user - summarize - last seen lookup failed", logging.Err(err))
		}
		seen = m
	}
	out := make([]domain.UserSummary, len(users))
	for i, u := range users {
		sum := domain.UserSummary{
			ID:           u.ID,
			PhoneNumber:  u.PhoneNumber,
			Name:         u.Name,
			ProfileImage: u.ProfileImage,
			IsOnline:     online[u.ID],
		}
		if t, ok := seen[u.ID]; ok {
			t := t
			sum.LastSeen = &t
		}
		out[i] = sum
	}
	return out
}

func e164(phone string) string { return "+91" + phone }

