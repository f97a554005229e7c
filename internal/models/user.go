package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the account record every post, comment and follow edge points at.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"size:254"`
	Password    string    `json:"-"`                                         // bcrypt hash, empty for Firebase-only accounts
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
	IsStaff     bool      `json:"is_staff" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignupRequest defines the sign-up form
type SignupRequest struct {
	Username string `form:"username" validate:"required,max=150,username"`
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	Password string `form:"password" validate:"required,min=8,max=128"`
}

// LoginRequest defines the login form
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
