package services

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"traffic-count-api/config"
	"traffic-count-api/models"
)

// ErrInvalidCredentials is returned by Login when the username/password
// pair does not match an account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService checks credentials and manages the session table. A session
// is open while End = 0; the client identifies it with an opaque numeric
// token carried in a cookie.
type AuthService struct {
	db          *gorm.DB
	tokenDigits int
	now         func() int64
}

func NewAuthService(db *gorm.DB, cfg config.SessionConfig) *AuthService {
	digits := cfg.TokenDigits
	if digits < 4 {
		digits = 8
	}
	return &AuthService{
		db:          db,
		tokenDigits: digits,
		now:         func() int64 { return time.Now().Unix() },
	}
}

func (s *AuthService) HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *AuthService) CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Login verifies the credentials, closes any session the user left open
// and opens a fresh one. Returns the user id and the new session token.
func (s *AuthService) Login(username, password string) (int64, string, error) {
	var user models.User
	err := s.db.First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, "", ErrInvalidCredentials
	}
	if err != nil {
		return 0, "", err
	}
	if !s.CheckPassword(user.Password, password) {
		return 0, "", ErrInvalidCredentials
	}

	start := s.now()
	err = s.db.Model(&models.Session{}).
		Where(map[string]interface{}{"userid": user.UserID, "end": 0}).
		Update("end", start).Error
	if err != nil {
		return 0, "", err
	}

	magic, err := randomDigits(s.tokenDigits)
	if err != nil {
		return 0, "", err
	}
	session := models.Session{UserID: user.UserID, Magic: magic, Start: start, End: 0}
	if err := s.db.Create(&session).Error; err != nil {
		return 0, "", err
	}

	return user.UserID, magic, nil
}

// Validate maps a (user id, token) cookie pair to the open session it
// identifies, or 0 when the pair is stale, mismatched or absent.
func (s *AuthService) Validate(userStr, magic string) int64 {
	if userStr == "" || magic == "" {
		return 0
	}
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return 0
	}

	var session models.Session
	err = s.db.
		Where(map[string]interface{}{"userid": userID, "magic": magic, "end": 0}).
		First(&session).Error
	if err != nil {
		return 0
	}
	return session.SessionID
}

// Logout closes the open session for the pair and reports whether one
// existed.
func (s *AuthService) Logout(userStr, magic string) bool {
	if userStr == "" || magic == "" {
		return false
	}
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return false
	}

	result := s.db.Model(&models.Session{}).
		Where(map[string]interface{}{"userid": userID, "magic": magic, "end": 0}).
		Update("end", s.now())
	return result.Error == nil && result.RowsAffected > 0
}

// randomDigits returns a random numeric token of exactly n digits.
func randomDigits(n int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	r, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return new(big.Int).Add(low, r).String(), nil
}
