package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vilatur/internal/model"
	"vilatur/internal/repository"
)

// DefaultMinPasswordLength applies when the configured minimum is not positive.
const DefaultMinPasswordLength = 8

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

const (
	msgEmailInvalid          = "E-mail inválido"
	msgPasswordTooShort      = "Senha precisa ter pelo menos %d caracteres"
	msgPasswordTooLong       = "Senha muito longa"
	msgUsernameRequired      = "Nome de usuário é obrigatório"
	msgUsernameInvalid       = "Nome de usuário só pode ter letras, números, _, . e -"
	msgNameRequired          = "Nome é obrigatório"
	msgCurrentPasswordWrong  = "Senha atual incorreta"
	msgCurrentPasswordNeeded = "Informe a senha atual para trocar a senha"
	maxUsernameLength        = 40
	msgUsernameTooLong       = "Nome de usuário muito longo"
)

// UserService handles business logic for user operations
type UserService struct {
	repo              repository.UserRepository
	listings          repository.ListingRepository
	minPasswordLength int
	log               *zap.Logger
}

func NewUserService(repo repository.UserRepository, listings repository.ListingRepository, minPasswordLength int, log *zap.Logger) *UserService {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &UserService{
		repo:              repo,
		listings:          listings,
		minPasswordLength: minPasswordLength,
		log:               log.Named("user_service"),
	}
}

// Register validates the request and creates the account.
// Duplicate e-mail or username is reported as *model.ConflictError.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	name := strings.TrimSpace(req.Name)

	verr := &model.ValidationError{}
	s.checkEmail(verr, email)
	s.checkPassword(verr, req.Password)
	checkUsername(verr, username)
	if name == "" {
		verr.Add("name", msgNameRequired)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		Name:           name,
		PasswordHashed: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// VerifyCredentials authenticates by e-mail (identifier contains "@") or username.
// Unknown identifiers and wrong passwords both yield model.ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.repo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// PublicProfile returns the user and the {id, title} summaries of their listings.
func (s *UserService) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	summaries, err := s.listings.ListSummaries(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &model.PublicProfile{User: user, Listings: summaries}, nil
}

// UpdateProfile applies the non-nil fields of upd. Changing the password
// requires the current one.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	verr := &model.ValidationError{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			verr.Add("name", msgNameRequired)
		}
		user.Name = name
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		checkUsername(verr, username)
		user.Username = username
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		s.checkEmail(verr, email)
		user.Email = email
	}

	if upd.NewPassword != "" {
		s.checkPassword(verr, upd.NewPassword)
		switch {
		case upd.CurrentPassword == "":
			verr.Add("currentPassword", msgCurrentPasswordNeeded)
		case bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(upd.CurrentPassword)) != nil:
			verr.Add("currentPassword", msgCurrentPasswordWrong)
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if upd.NewPassword != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(upd.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHashed = string(hashed)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) checkEmail(verr *model.ValidationError, email string) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		verr.Add("email", msgEmailInvalid)
	}
}

func (s *UserService) checkPassword(verr *model.ValidationError, password string) {
	switch {
	case utf8.RuneCountInString(password) < s.minPasswordLength:
		verr.Add("password", fmt.Sprintf(msgPasswordTooShort, s.minPasswordLength))
	case len(password) > maxPasswordBytes:
		verr.Add("password", msgPasswordTooLong)
	}
}

func checkUsername(verr *model.ValidationError, username string) {
	switch {
	case username == "":
		verr.Add("username", msgUsernameRequired)
	case len(username) > maxUsernameLength:
		verr.Add("username", msgUsernameTooLong)
	case strings.IndexFunc(username, func(r rune) bool { return !isUsernameRune(r) }) >= 0:
		verr.Add("username", msgUsernameInvalid)
	}
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '_' || r == '.' || r == '-'
}
