package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	jwtSecretKey     = "jwt_secret"
	adminRole        = "admin"
)

var (
	ErrAdminDisabled      = errors.New("admin access is not configured")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
)

// AdminAuth issues and checks the bearer tokens of the admin API
type AdminAuth struct {
	username  string
	passHash  []byte
	ttl       time.Duration
	jwtSecret []byte
	log       *zap.SugaredLogger

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAdminAuth builds the admin authenticator. The signing secret comes
// from cfg, else from the settings table, else a fresh random one.
func NewAdminAuth(cfg AdminConfig, db *DB, logger *zap.SugaredLogger) (*AdminAuth, error) {
	a := &AdminAuth{
		username: cfg.Username,
		passHash: []byte(cfg.PasswordHash),
		ttl:      cfg.TTL(),
		log:      logger,
		rateMap:  make(map[string]*rateEntry),
	}
	if cfg.JWTSecret != "" {
		a.jwtSecret = []byte(cfg.JWTSecret)
		return a, nil
	}
	secret, err := loadOrCreateSecret(db, logger)
	if err != nil {
		return nil, err
	}
	a.jwtSecret = secret
	return a, nil
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB, logger *zap.SugaredLogger) ([]byte, error) {
	if db != nil {
		if h := db.GetSetting(jwtSecretKey); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b, nil
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating JWT secret: %w", err)
	}
	if db != nil {
		if err := db.SetSetting(jwtSecretKey, hex.EncodeToString(secret)); err != nil {
			logger.Warnw("could not persist JWT secret", "err", err)
		}
	}
	return secret, nil
}

// Enabled reports whether an admin password is configured
func (a *AdminAuth) Enabled() bool {
	return a != nil && len(a.passHash) > 0
}

// Login checks the admin credentials and returns a signed token
func (a *AdminAuth) Login(username, password, ip string) (string, error) {
	if !a.Enabled() {
		return "", ErrAdminDisabled
	}
	if !a.checkRate(ip) {
		a.log.Warnw("admin login rate limited", "ip", ip)
		return "", ErrTooManyAttempts
	}
	if username != a.username {
		a.log.Warnw("admin login failed", "ip", ip, "username", username)
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		a.log.Warnw("admin login failed", "ip", ip, "username", username)
		return "", ErrInvalidCredentials
	}

	token, err := a.generateToken(username)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	a.log.Infow("admin login", "ip", ip, "username", username)
	return token, nil
}

// ValidateToken validates a JWT and returns the admin username
func (a *AdminAuth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return "", errors.New("invalid token claims")
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	return username, nil
}

func (a *AdminAuth) generateToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"usr":  username,
		"role": adminRole,
		"exp":  now.Add(a.ttl).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *AdminAuth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
