package auth

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/teamspace/hub/internal/models"
	"github.com/teamspace/hub/internal/modules/hub"
	jwtpkg "github.com/teamspace/hub/internal/pkg/jwt"
	sessionpkg "github.com/teamspace/hub/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errUserNotFound  = errors.New("user not found")
	errWrongPassword = errors.New("wrong password")
	errUsernameTaken = errors.New("username already taken")
)

const mysqlErrDuplicateEntry = 1062

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Login verifies the password and issues a session-bound JWT.
func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errWrongPassword
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(username, password, name string) (*models.UserModel, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = username
	}
	u := models.UserModel{Username: username, Password: string(hash), Name: name}
	if err := s.db.Create(&u).Error; err != nil {
		var mysqlErr *mysqlDriver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return nil, errUsernameTaken
		}
		return nil, err
	}
	return &u, nil
}

// Logout revokes the session the token was bound to.
func (s *Service) Logout(userID, sessionID string) error {
	return sessionpkg.Revoke(s.db, userID, sessionID)
}

// Verify implements hub.Verifier: token → identity, checking both the JWT
// signature and that the bound session is still active.
func (s *Service) Verify(ctx context.Context, credential string) (hub.Identity, error) {
	claims, err := jwtpkg.Parse(credential)
	if err != nil {
		return hub.Identity{}, err
	}
	active, err := sessionpkg.IsActive(s.db.WithContext(ctx), claims.UserID, claims.SessionID)
	if err != nil {
		return hub.Identity{}, err
	}
	if !active {
		return hub.Identity{}, errors.New("session expired or revoked")
	}

	var u models.UserModel
	if err := s.db.WithContext(ctx).Select("id, username, name").First(&u, "id = ?", claims.UserID).Error; err != nil {
		return hub.Identity{}, err
	}
	return hub.Identity{UserID: u.ID, DisplayName: u.DisplayName()}, nil
}
