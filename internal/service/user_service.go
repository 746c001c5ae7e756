package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Signup and login form messages.
const (
	MsgUsernameTaken      = "Пользователь с таким именем уже существует."
	MsgEmailTaken         = "Пользователь с таким адресом электронной почты уже существует."
	MsgPasswordMismatch   = "Введенные пароли не совпадают."
	MsgInvalidCredentials = "Пожалуйста, введите правильные имя пользователя и пароль. Оба поля могут быть чувствительны к регистру."
)

// AuthService registers users and issues, resolves and revokes sessions.
type AuthService struct {
	userRepo   repository.UserRepository
	rdb        *redis.Client
	secret     string
	sessionTTL time.Duration
	hashCost   int
}

type SignupInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// Session is an issued session token plus the user it belongs to.
type Session struct {
	Token  string
	Claims *middleware.SessionClaims
	User   *models.User
}

func NewAuthService(userRepo repository.UserRepository, rdb *redis.Client, secret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		rdb:        rdb,
		secret:     secret,
		sessionTTL: middleware.SessionTTL,
		hashCost:   bcrypt.DefaultCost,
	}
}

// Signup validates in, stores a new user with a bcrypt password hash and
// opens a session for it. Field problems come back as models.FieldErrors.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	errs := models.FieldErrors{}
	if in.Username == "" {
		errs.Add("username", validation.MsgRequired)
	} else if err := validation.ValidateUsername(in.Username); err != nil {
		errs.Add("username", err.Error())
	}
	if in.Email == "" {
		errs.Add("email", validation.MsgRequired)
	} else if err := validation.ValidateEmail(in.Email); err != nil {
		errs.Add("email", err.Error())
	}
	if in.Password == "" {
		errs.Add("password", validation.MsgRequired)
	} else if err := validation.ValidatePassword(in.Password); err != nil {
		errs.Add("password", err.Error())
	} else if in.PasswordConfirm != "" && in.PasswordConfirm != in.Password {
		errs.Add("password_confirm", MsgPasswordMismatch)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		errs.Add("username", MsgUsernameTaken)
	}
	if existing, err := s.userRepo.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		errs.Add("email", MsgEmailTaken)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			errs.Add("username", MsgUsernameTaken)
			return nil, errs
		}
		return nil, err
	}
	return s.issue(user)
}

// Login checks credentials and opens a session. Unknown users and wrong
// passwords get the same unauthorized error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.userRepo.GetCredentials(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError(MsgInvalidCredentials)
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError(MsgInvalidCredentials)
	}
	user.Password = ""
	return s.issue(user)
}

// Authenticate resolves a session token to its user. Revoked tokens and
// tokens of deleted users are rejected with an unauthorized error.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *middleware.SessionClaims, error) {
	claims, err := middleware.ParseToken(s.secret, token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("invalid or expired session")
	}
	if s.rdb != nil {
		revoked, err := s.rdb.Exists(ctx, middleware.RevocationKey(claims.JTI)).Result()
		if err == nil && revoked > 0 {
			return nil, nil, models.NewUnauthorizedError("session has been revoked")
		}
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil, models.NewUnauthorizedError("session user no longer exists")
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the session until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.SessionClaims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}
	if s.rdb == nil {
		middleware.Logger.WarnContext(ctx, "Session revocation skipped, redis not configured", "user_id", claims.UserID)
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, middleware.RevocationKey(claims.JTI), claims.UserID, ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, claims, err := middleware.IssueToken(s.secret, user.ID, user.Username, s.sessionTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, Claims: claims, User: user}, nil
}
