package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
	"ijara_backend/pkg/utils/jwt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// IdentityService resolves bearer tokens to actors and issues tokens for
// registered users.
type IdentityService struct {
	users    repository.UserStore
	tokens   *jwt.Manager
	validate *validator.Validate
}

func NewIdentityService(users repository.UserStore, tokens *jwt.Manager) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, validate: newInputValidator()}
}

func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	if err := s.check(input); err != nil {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("could not hash password: %w", err)
	}

	user := &model.User{
		Email:       input.Email,
		Password:    string(hashed),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		IsActive:    true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ads.FieldError("email", "user with this email already exists.")
		}
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.IsStaff)
	if err != nil {
		return nil, "", fmt.Errorf("could not generate token: %w", err)
	}
	return user, token, nil
}

// Authenticate checks credentials and returns a fresh token.
func (s *IdentityService) Authenticate(ctx context.Context, input LoginInput) (*model.User, string, error) {
	if err := s.check(input); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ads.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.IsStaff)
	if err != nil {
		return nil, "", fmt.Errorf("could not generate token: %w", err)
	}
	return user, token, nil
}

// CurrentUser resolves a bearer token. An empty token is an anonymous
// caller; an invalid one is ErrUnauthenticated.
func (s *IdentityService) CurrentUser(ctx context.Context, token string) (*ads.Actor, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ads.ErrUnauthenticated
	}
	user, err := s.users.FindUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ads.ErrNotFound) {
			return nil, ads.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ads.ErrUnauthenticated
	}
	return ActorFor(user), nil
}

// Profile returns the stored user record for id.
func (s *IdentityService) Profile(ctx context.Context, id uint) (*model.User, error) {
	return s.users.FindUser(ctx, id)
}

// ActorFor builds the request actor from a user record. Staff status is
// read from the record, not the token.
func ActorFor(u *model.User) *ads.Actor {
	return &ads.Actor{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.GetFullName(),
		Phone:    u.PhoneNumber,
		IsStaff:  u.IsStaff,
	}
}

func (s *IdentityService) check(input interface{}) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ads.ValidationError{}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			verr.Add(fe.Field(), ads.MsgRequired)
		case "email":
			verr.Add(fe.Field(), "Enter a valid email address.")
		case "min":
			verr.Add(fe.Field(), fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param()))
		default:
			verr.Add(fe.Field(), fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
		}
	}
	return verr
}
