package service

import (
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials 表示邮箱不存在或密码错误，两种情况不做区分。
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive 表示账号已被暂停或停用。
	ErrAccountInactive = errors.New("account is not active")
)

// UserStore 是认证需要的用户存储。
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// AuthService 负责注册、登录和签发 JWT。
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	ttl       time.Duration
	issuer    string
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(users UserStore, cfg config.AuthConfig) *AuthService {
	ttl := time.Duration(cfg.TokenTTL) * time.Second
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JwtSecret),
		ttl:       ttl,
		issuer:    cfg.Issuer,
	}
}

// Register 处理新用户通过邮箱注册的逻辑。
func (s *AuthService) Register(ctx context.Context, email, password, username, fullName string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Username: username,
		FullName: fullName,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 校验密码并返回 JWT。
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if store.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if user.Status != models.StatusActive {
		return "", ErrAccountInactive
	}

	now := time.Now()
	// 记录登录时间失败不影响登录
	_ = s.users.TouchLastLogin(ctx, user.ID, now)
	return s.generateJWT(user.ID, now)
}

// generateJWT 为指定用户 ID 生成一个新的 JWT。
func (s *AuthService) generateJWT(userID uint, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": s.issuer,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
