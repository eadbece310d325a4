package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

const maxTokenAttempts = 5

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// Violation messages returned in BadRequest errors.
const (
	MsgFullNameRequired     = "Full name is required."
	MsgEmailRequired        = "Email is required."
	MsgEmailExists          = "Email already exists."
	MsgEmailInvalid         = "Invalid email format."
	MsgAddressRequired      = "Address is required."
	MsgPhoneRequired        = "Phone number is required."
	MsgGenderRequired       = "Gender is required."
	MsgDNIRequired          = "DNI is required."
	MsgDNIExists            = "DNI already exists."
	MsgPasswordRequired     = "Password is required."
	MsgConfirmRequired      = "Confirm password is required."
	MsgTokenRequired        = "Token is required."
	MsgPasswordTooLong      = "Password must be at most 72 bytes."
	MsgPasswordsDoNotMatch  = "Passwords do not match."
	MsgValidationExpired    = "Validation token expired."
	MsgUserAlreadyEnabled   = "User already enabled."
	MsgInvalidValidationTok = "Invalid validation token"
)

// UserService runs the registration saga and account activation. Every
// registration commits the user, its validation token and the outbox event
// together; delivery to the bus is left to the outbox relay.
type UserService struct {
	users    ports.UserRepository
	tokens   ports.ValidationTokenRepository
	store    ports.RegistrationStore
	topic    string
	notify   func()
	validate *validator.Validate
	log      zerolog.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewUserService returns a UserService publishing to topic. notify is called
// after each commit that wrote an outbox event; it may be nil.
func NewUserService(
	users ports.UserRepository,
	tokens ports.ValidationTokenRepository,
	store ports.RegistrationStore,
	topic string,
	notify func(),
	log zerolog.Logger,
) *UserService {
	if notify == nil {
		notify = func() {}
	}
	return &UserService{
		users:    users,
		tokens:   tokens,
		store:    store,
		topic:    topic,
		notify:   notify,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
		newCode:  GenerateValidationCode,
	}
}

// CreateUser validates and registers a new, not yet enabled account.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) error {
	violations, err := s.validateCreate(ctx, in)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return domain.BadRequest(violations...)
	}

	role, ok := domain.ParseRoleName(strings.ToUpper(strings.TrimSpace(in.Role)))
	if !ok {
		return domain.NotFound("Role not found: " + in.Role)
	}

	now := s.now().UTC()
	user := &domain.Identity{
		FullName:              strings.TrimSpace(in.FullName),
		Email:                 in.Email,
		Address:               in.Address,
		Phone:                 in.Phone,
		Gender:                in.Gender,
		DNI:                   in.DNI,
		Tuition:               in.Tuition,
		SocialWork:            in.SocialWork,
		MembershipNumber:      in.MembershipNumber,
		Plan:                  in.Plan,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Enabled:               false,
		Roles:                 []domain.RoleName{role},
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.withFreshToken(ctx, user.Email, user.FullName, now, func(token *domain.ValidationToken, event *domain.OutboxEvent) error {
		return s.store.Register(ctx, user, token, event)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("email", user.Email).Str("role", string(role)).Msg("user registered")
	return nil
}

// EnableUser consumes a validation token and activates its account.
func (s *UserService) EnableUser(ctx context.Context, in ports.EnableUserInput) error {
	var violations []string
	if in.Password == "" {
		violations = append(violations, MsgPasswordRequired)
	} else if len(in.Password) > maxPasswordBytes {
		violations = append(violations, MsgPasswordTooLong)
	}
	if in.ConfirmPassword == "" {
		violations = append(violations, MsgConfirmRequired)
	}
	if in.Token == "" {
		violations = append(violations, MsgTokenRequired)
	}
	if in.Password != "" && in.ConfirmPassword != "" && in.Password != in.ConfirmPassword {
		violations = append(violations, MsgPasswordsDoNotMatch)
	}
	if len(violations) > 0 {
		return domain.BadRequest(violations...)
	}

	token, err := s.tokens.FindByToken(ctx, in.Token)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(MsgInvalidValidationTok)
	}
	if err != nil {
		return fmt.Errorf("enable user: find token: %w", err)
	}

	now := s.now().UTC()
	if token.Expired(now) {
		return domain.BadRequest(MsgValidationExpired)
	}

	if _, err := s.lookup(ctx, token.Email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return domain.BadRequest(MsgPasswordTooLong)
	}
	if err != nil {
		return fmt.Errorf("enable user: hash password: %w", err)
	}
	if err := s.store.Activate(ctx, token.Email, string(hash), now); err != nil {
		return fmt.Errorf("enable user: %w", err)
	}

	s.log.Info().Str("email", token.Email).Msg("user enabled")
	return nil
}

// RequestActivation issues a new validation token for a pending account and
// queues another activation email.
func (s *UserService) RequestActivation(ctx context.Context, email string) error {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if user.Enabled {
		return domain.BadRequest(MsgUserAlreadyEnabled)
	}

	now := s.now().UTC()
	err = s.withFreshToken(ctx, user.Email, user.FullName, now, func(token *domain.ValidationToken, event *domain.OutboxEvent) error {
		return s.store.Reissue(ctx, token, event)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("email", user.Email).Msg("activation requested")
	return nil
}

// FullData returns the complete account projection, password hash included.
func (s *UserService) FullData(ctx context.Context, email string) (*domain.Identity, error) {
	return s.lookup(ctx, email)
}

func (s *UserService) lookup(ctx context.Context, email string) (*domain.Identity, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(domain.MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *UserService) validateCreate(ctx context.Context, in ports.CreateUserInput) ([]string, error) {
	var violations []string

	if strings.TrimSpace(in.FullName) == "" {
		violations = append(violations, MsgFullNameRequired)
	}

	switch {
	case strings.TrimSpace(in.Email) == "":
		violations = append(violations, MsgEmailRequired)
	default:
		exists, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("validate user: %w", err)
		}
		if exists {
			violations = append(violations, MsgEmailExists)
		} else if s.validate.Var(in.Email, "email") != nil {
			violations = append(violations, MsgEmailInvalid)
		}
	}

	if strings.TrimSpace(in.Address) == "" {
		violations = append(violations, MsgAddressRequired)
	}
	if strings.TrimSpace(in.Phone) == "" {
		violations = append(violations, MsgPhoneRequired)
	}
	if strings.TrimSpace(in.Gender) == "" {
		violations = append(violations, MsgGenderRequired)
	}

	if strings.TrimSpace(in.DNI) == "" {
		violations = append(violations, MsgDNIRequired)
	} else {
		exists, err := s.users.ExistsByDNI(ctx, in.DNI)
		if err != nil {
			return nil, fmt.Errorf("validate user: %w", err)
		}
		if exists {
			violations = append(violations, MsgDNIExists)
		}
	}

	return violations, nil
}

// withFreshToken generates a validation code that no unexpired token holds,
// builds the matching registration event and hands both to commit. A
// collision reported at commit time triggers a new code.
func (s *UserService) withFreshToken(
	ctx context.Context,
	email, username string,
	now time.Time,
	commit func(*domain.ValidationToken, *domain.OutboxEvent) error,
) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}

		taken, err := s.tokens.ExistsActive(ctx, code, now)
		if err != nil {
			return fmt.Errorf("check validation token: %w", err)
		}
		if taken {
			s.log.Debug().Int("attempt", attempt).Msg("validation code collision, regenerating")
			continue
		}

		token := newValidationToken(code, email, now)
		event, err := s.registrationEvent(email, username, code, now)
		if err != nil {
			return err
		}

		err = commit(token, event)
		if errors.Is(err, ports.ErrTokenCollision) {
			s.log.Debug().Int("attempt", attempt).Msg("validation code collision at commit, regenerating")
			continue
		}
		if err != nil {
			return fmt.Errorf("commit registration: %w", err)
		}

		s.notify()
		return nil
	}
	return fmt.Errorf("generate validation token: %d attempts exhausted", maxTokenAttempts)
}

func (s *UserService) registrationEvent(email, username, code string, now time.Time) (*domain.OutboxEvent, error) {
	payload, err := json.Marshal(domain.RegistrationEvent{
		Email:           email,
		Username:        username,
		ValidationToken: code,
	})
	if err != nil {
		return nil, fmt.Errorf("encode registration event: %w", err)
	}
	return &domain.OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     s.topic,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}
