package library

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/auth"
	mailer "github.com/user/vidnest/internal/mail"
	"github.com/user/vidnest/internal/metrics"
	"github.com/user/vidnest/internal/model"
	"github.com/user/vidnest/internal/store"
)

// AccountsConfig holds the settings of account flows
type AccountsConfig struct {
	// PublicURL is the frontend origin used to build reset links
	PublicURL string
	// ResetTokenTTL is how long a password-reset link stays valid
	ResetTokenTTL time.Duration
	// LinkCodeTTL is how long a Telegram link code stays valid
	LinkCodeTTL time.Duration
}

// Accounts implements registration, login, profile and recovery flows
type Accounts struct {
	store  store.Store
	tokens *auth.TokenManager
	mailer mailer.Sender
	config AccountsConfig
	now    func() time.Time
}

// NewAccounts creates the account service
func NewAccounts(store store.Store, tokens *auth.TokenManager, sender mailer.Sender, cfg AccountsConfig) *Accounts {
	return &Accounts{
		store:  store,
		tokens: tokens,
		mailer: sender,
		config: cfg,
		now:    time.Now,
	}
}

// RegisterInput is a sign-up request
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is a sign-in request
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput changes profile fields; nil means unchanged
type ProfileInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"currentPassword"`
}

// Session is an authenticated user with a signed token
type Session struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// LinkCode is a pending Telegram link code
type LinkCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (a *Accounts) session(user *model.User) (*Session, error) {
	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Register creates a user and signs them in
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	v := validator{}
	v.check(name != "", "name", "name is required")
	v.check(len(name) <= 100, "name", "name is too long")
	v.check(email != "", "email", "email is required")
	v.check(email == "" || validEmail(email), "email", "email is not valid")
	v.check(len(in.Password) >= auth.MinPasswordLength, "password",
		fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     model.RoleUser,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Uint("userID", user.ID).Msg("User registered")
	return a.session(user)
}

// Login verifies credentials and issues a session
func (a *Accounts) Login(ctx context.Context, in LoginInput) (*Session, error) {
	v := validator{}
	v.check(strings.TrimSpace(in.Email) != "", "email", "email is required")
	v.check(in.Password != "", "password", "password is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	user, err := a.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return a.session(user)
}

// Profile returns the user behind a session
func (a *Accounts) Profile(ctx context.Context, userID uint) (*model.User, error) {
	return a.store.GetUserByID(ctx, userID)
}

// UpdateProfile changes name, email or password. Changing the email or
// password requires the current password.
func (a *Accounts) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*model.User, error) {
	user, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	v := validator{}
	sensitive := in.Email != nil || in.Password != nil
	if sensitive {
		v.check(auth.CheckPassword(user.Password, in.CurrentPassword), "currentPassword", "current password is incorrect")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		v.check(name != "", "name", "name cannot be empty")
		v.check(len(name) <= 100, "name", "name is too long")
		user.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		v.check(validEmail(email), "email", "email is not valid")
		user.Email = email
	}
	if in.Password != nil {
		v.check(len(*in.Password) >= auth.MinPasswordLength, "password",
			fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
		}
		user.Password = hash
	}

	if err := a.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword mails a reset link when the email belongs to a user. It
// reports success either way so callers cannot discover which accounts exist.
func (a *Accounts) ForgotPassword(ctx context.Context, email string) error {
	user, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		log.Info().Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, hash := auth.NewResetToken()
	expiry := a.now().Add(a.config.ResetTokenTTL)
	user.ResetTokenHash = hash
	user.ResetTokenExpiry = &expiry
	// failures past the lookup are only logged: the answer must not differ
	// between known and unknown emails
	if err := a.store.UpdateUser(ctx, user); err != nil {
		log.Error().Err(err).Uint("userID", user.ID).Msg("Failed to store reset token")
		return nil
	}

	link := strings.TrimRight(a.config.PublicURL, "/") + "/reset-password/" + token
	msg, err := mailer.PasswordReset(user.Email, user.Name, link, a.config.ResetTokenTTL.String())
	if err != nil {
		log.Error().Err(err).Uint("userID", user.ID).Msg("Failed to build reset mail")
		return nil
	}
	if err := a.mailer.Send(ctx, msg); err != nil {
		metrics.RecordError("reset_mail")
		log.Error().Err(err).Uint("userID", user.ID).Msg("Failed to send reset mail")
	}
	return nil
}

// ResetPassword sets a new password using a mailed token and signs the user in
func (a *Accounts) ResetPassword(ctx context.Context, token, password string) (*Session, error) {
	if len(password) < auth.MinPasswordLength {
		return nil, &ValidationError{Fields: map[string]string{
			"password": fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength),
		}}
	}

	user, err := a.store.GetUserByResetToken(ctx, auth.HashToken(strings.TrimSpace(token)), a.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}
	user.Password = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpiry = nil
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Uint("userID", user.ID).Msg("Password reset")
	return a.session(user)
}

// CreateLinkCode issues a code the user sends to the share bot
func (a *Accounts) CreateLinkCode(ctx context.Context, userID uint) (*LinkCode, error) {
	user, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	expiry := a.now().Add(a.config.LinkCodeTTL)
	user.TelegramLinkCode = auth.NewLinkCode()
	user.TelegramLinkExpiry = &expiry
	if err := a.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &LinkCode{Code: user.TelegramLinkCode, ExpiresAt: expiry}, nil
}

// LinkTelegram binds chatID to the user holding code
func (a *Accounts) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	user, err := a.store.GetUserByLinkCode(ctx, strings.ToUpper(strings.TrimSpace(code)), a.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if linked, err := a.store.GetUserByTelegramChat(ctx, chatID); err == nil && linked.ID != user.ID {
		return nil, ErrChatLinked
	}

	if err := a.store.LinkTelegram(ctx, user.ID, chatID); err != nil {
		return nil, err
	}
	user.TelegramChatID = &chatID
	user.TelegramLinkCode = ""
	user.TelegramLinkExpiry = nil
	return user, nil
}

// UserForChat returns the user linked to a Telegram chat
func (a *Accounts) UserForChat(ctx context.Context, chatID int64) (*model.User, error) {
	return a.store.GetUserByTelegramChat(ctx, chatID)
}

// UnlinkTelegram removes the chat binding; unknown chats are not an error
func (a *Accounts) UnlinkTelegram(ctx context.Context, chatID int64) error {
	user, err := a.store.GetUserByTelegramChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return a.store.UnlinkTelegram(ctx, user.ID)
}
