// Package auth implements sign-up, sign-in and preference setup for
// MealVibe accounts. Profiles returned here seed new wizard sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/orsinium-labs/enum"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"MealVibe/internal/database"
	"MealVibe/internal/models"
)

const (
	AccessTokenDuration = 7 * 24 * time.Hour
	MinPasswordLength   = 8
	tokenIssuer         = "mealvibe"
)

// Action is the "action" field of an auth request.
type Action enum.Member[string]

var (
	ActionSignup        = Action{"signup"}
	ActionSignin        = Action{"signin"}
	ActionCompleteSetup = Action{"complete-setup"}
	Actions             = enum.New(ActionSignup, ActionSignin, ActionCompleteSetup)
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type emailVerificationResult struct {
	valid     bool
	message   string
	timestamp time.Time
}

// Service issues tokens and manages accounts stored in a database.Service.
type Service struct {
	db       database.Service
	secret   []byte
	verifier *emailverifier.Verifier

	emailCache sync.Map // email -> emailVerificationResult
}

// NewService returns an auth service signing tokens with secret.
func NewService(db database.Service, secret string) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signing secret must not be empty")
	}
	return &Service{
		db:       db,
		secret:   []byte(secret),
		verifier: emailverifier.NewVerifier(),
	}, nil
}

// Signup creates an account with no saved diet or allergies.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	name = strings.TrimSpace(name)
	email = database.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if ok, msg := s.verifyEmailAddressWithCache(email); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		PasswordHash:   string(hashedPassword),
		SavedDiet:      models.NoDiet,
		SavedAllergies: []string{},
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("new user registered")
	return s.respond(user)
}

// Signin checks the password and returns the stored profile.
func (s *Service) Signin(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Info().Str("user_id", user.ID).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}
	return s.respond(user)
}

// CompleteSetup stores the diet and allergies chosen after sign-up.
func (s *Service) CompleteSetup(ctx context.Context, userID, diet string, allergies []string) (*models.AuthResponse, error) {
	diet = strings.TrimSpace(diet)
	if diet == "" {
		diet = models.NoDiet
	}

	cleaned := make([]string, 0, len(allergies))
	for _, a := range allergies {
		if a = strings.TrimSpace(a); a != "" && !slices.Contains(cleaned, a) {
			cleaned = append(cleaned, a)
		}
	}

	user, err := s.db.UpdatePreferences(ctx, userID, diet, cleaned)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return s.respond(user)
}

// Profile loads the profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// ProfileFromToken validates tokenString and loads its user.
func (s *Service) ProfileFromToken(ctx context.Context, tokenString string) (*models.UserProfile, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	p, err := s.Profile(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return p, err
}

func (s *Service) respond(user *database.User) (*models.AuthResponse, error) {
	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.AuthResponse{UserProfile: user.Profile(), Token: token}, nil
}

func (s *Service) generateAccessToken(user *database.User) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies an HS256 access token.
func (s *Service) ParseToken(tokenString string) (*JwtCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// verifyEmailAddress checks syntax and rejects disposable domains. No SMTP
// or MX lookups are made.
func (s *Service) verifyEmailAddress(email string) (bool, string) {
	syntax := s.verifier.ParseAddress(email)
	if !syntax.Valid {
		return false, "Invalid email address format."
	}
	if s.verifier.IsDisposable(syntax.Domain) {
		return false, "Disposable email addresses are not allowed."
	}
	return true, ""
}

func (s *Service) verifyEmailAddressWithCache(email string) (bool, string) {
	if cached, ok := s.emailCache.Load(email); ok {
		result := cached.(emailVerificationResult)
		if time.Since(result.timestamp) < 24*time.Hour {
			return result.valid, result.message
		}
	}

	valid, message := s.verifyEmailAddress(email)
	s.emailCache.Store(email, emailVerificationResult{
		valid:     valid,
		message:   message,
		timestamp: time.Now(),
	})
	return valid, message
}
