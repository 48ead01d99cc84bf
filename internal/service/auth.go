package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidLogin = errors.New("invalid telegram login")
	ErrLoginExpired = errors.New("telegram login expired")
	ErrInvalidToken = errors.New("invalid token")
)

type AuthOptions struct {
	JWTSecret     string
	JWTExpiry     time.Duration
	IsProduction  bool
	LoginBotToken string        // verifies widget hashes when set
	LoginMaxAge   time.Duration // zero disables the freshness check
}

type AuthService struct {
	userRepo repository.UserRepository
	bots     *BotService
	opts     AuthOptions
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, bots *BotService, opts AuthOptions) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		bots:     bots,
		opts:     opts,
		now:      time.Now,
	}
}

// VerifyLogin checks the widget hash against the login bot token.
// Without a configured token every payload with an id is accepted.
func (s *AuthService) VerifyLogin(login *model.TelegramLogin) error {
	if login.ID == "" {
		return fmt.Errorf("%w: telegram id is required", ErrInvalidLogin)
	}
	if s.opts.LoginBotToken == "" {
		return nil
	}

	secret := sha256.Sum256([]byte(s.opts.LoginBotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(login.DataCheckString()))
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(login.Hash))
	if err != nil || !hmac.Equal(got, expected) {
		return fmt.Errorf("%w: hash mismatch", ErrInvalidLogin)
	}

	if s.opts.LoginMaxAge > 0 && s.now().Sub(login.AuthTime()) > s.opts.LoginMaxAge {
		return ErrLoginExpired
	}
	return nil
}

// Login creates or refreshes the account behind a verified widget payload and
// makes sure it has a bot assigned.
func (s *AuthService) Login(ctx context.Context, login *model.TelegramLogin) (*model.User, error) {
	if err := s.VerifyLogin(login); err != nil {
		return nil, err
	}

	user, err := s.upsertUser(ctx, login)
	if err != nil {
		return nil, err
	}

	if _, err := s.bots.Resolve(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID, "telegram_id", user.TelegramID)
	return user, nil
}

func (s *AuthService) upsertUser(ctx context.Context, login *model.TelegramLogin) (*model.User, error) {
	user, err := s.userRepo.ByTelegramID(ctx, login.ID)
	if errors.Is(err, repository.ErrUserNotFound) {
		now := time.Now().UTC()
		user = &model.User{
			ID:         uuid.New().String(),
			TelegramID: login.ID,
			FirstName:  login.FirstName,
			LastName:   login.LastName,
			Username:   login.Username,
			PhotoURL:   login.PhotoURL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = s.userRepo.Create(ctx, user)
		if errors.Is(err, repository.ErrDuplicateUser) {
			// Either a concurrent first login or a closed account.
			user, err = s.reopen(ctx, login.ID)
		} else if err == nil {
			slog.Info("user created", "user_id", user.ID, "telegram_id", user.TelegramID)
			return user, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.FirstName = login.FirstName
	user.LastName = login.LastName
	user.Username = login.Username
	user.PhotoURL = login.PhotoURL
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// reopen restores a closed account for telegramID, if any, and loads it.
func (s *AuthService) reopen(ctx context.Context, telegramID model.TelegramID) (*model.User, error) {
	restored, err := s.userRepo.Restore(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if restored {
		slog.Info("user restored", "telegram_id", telegramID)
	}
	return s.userRepo.ByTelegramID(ctx, telegramID)
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":     user.ID,
		"telegram_id": user.TelegramID.String(),
		"exp":         now.Add(s.opts.JWTExpiry).Unix(),
		"iat":         now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// UserFromToken loads the account a session token was issued for.
func (s *AuthService) UserFromToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	return s.userRepo.ByID(ctx, userID)
}

// Expiry is the expiry of a token issued now.
func (s *AuthService) Expiry() time.Time {
	return s.now().Add(s.opts.JWTExpiry)
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
