package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int        `gorm:"primary_key" json:"id"`
	Username  string     `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string     `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string     `gorm:"size:100;unique;not null" json:"email" binding:"required"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Role      UserRole   `gorm:"type:enum('A','U');default:'U'" json:"role"`
	IsActive  *bool      `gorm:"not null;default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

// LoginInfo is the token pair handed to the client.
type LoginInfo struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
}

func (user *User) PrepareGive() {
	user.Password = ""
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	if !utils.IsValidEmail(input.Email) {
		return nil, utils.ValidationErrorf("invalid email address")
	}
	if input.Role == "" {
		input.Role = UserRoleUser
	}
	if !input.Role.Valid() {
		return nil, utils.ValidationErrorf("unknown role %q", input.Role)
	}
	if len(input.Password) < 8 {
		return nil, utils.ValidationErrorf("password must be at least 8 characters")
	}

	input.Email = strings.ToLower(input.Email)
	var count int64
	err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", input.Username).Or("email = ?", input.Email).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ValidationErrorf("duplicate username or email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: html.EscapeString(strings.TrimSpace(input.Username)),
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashedPassword),
		Role:     input.Role,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
	if err != nil {
		return nil, errors.New("invalid username or password")
	}

	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return nil, errors.New("invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := utils.JwtGenerateRefresh(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}

	// track issued tokens so logout can drop them
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:        token,
		RefreshToken: refresh,
		Name:         user.Name,
		Username:     user.Username,
		Role:         user.Role,
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new pair.
func RefreshToken(ctx context.Context, refreshToken string) (*LoginInfo, error) {
	claims, err := utils.JwtValidateRefresh(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, claims.ID).Error; err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := utils.JwtGenerateRefresh(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	return &LoginInfo{
		Token:        token,
		RefreshToken: refresh,
		Name:         user.Name,
		Username:     user.Username,
		Role:         user.Role,
	}, nil
}

// Logout drops the current token from the user's issued set.
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var users []*User
	if err := db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		user.PrepareGive()
	}
	return users, nil
}
