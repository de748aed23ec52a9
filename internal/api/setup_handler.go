package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"fakenews/internal/db"
	"fakenews/internal/user"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxUsernameLen = 32

var (
	errSetupDone          = errors.New("setup already completed")
	errMissingCredentials = errors.New("username and password required")
	errUsernameTooLong    = errors.New("username too long")
	errUsernameTaken      = errors.New("username already exists")
)

type SetupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// newAccount hashes the password and inserts the user through tx.
func newAccount(tx *gorm.DB, username, password string, role user.Role) (user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return user.User{}, errMissingCredentials
	}
	if len(username) > maxUsernameLen {
		return user.User{}, errUsernameTooLong
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return user.User{}, err
	}
	u := user.User{Username: username, PasswordHash: hash, Role: role}
	if err := tx.Create(&u).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return user.User{}, errUsernameTaken
		}
		return user.User{}, err
	}
	return u, nil
}

// accountError writes the response for a failed newAccount or setup.
func accountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errSetupDone):
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Setup not allowed; users already exist"}})
	case errors.Is(err, errMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Missing username or password"}})
	case errors.Is(err, errUsernameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Username must be at most 32 characters"}})
	case errors.Is(err, errUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Username already exists"}})
	default:
		log.Printf("[Users] Account creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
	}
}

// SetupStatusHandler tells a fresh install that it still needs an admin.
func SetupStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.WithContext(c.Request.Context()).Model(&user.User{}).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"needs_setup": count == 0})
	}
}

// SetupHandler creates the first admin. The empty-table check and the insert
// share a transaction, so two racing setups cannot both succeed.
func SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		var admin user.User
		err := db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&user.User{}).Count(&count).Error; err != nil {
				return err
			}
			if count != 0 {
				return errSetupDone
			}
			var err error
			admin, err = newAccount(tx, req.Username, req.Password, user.RoleAdmin)
			return err
		})
		if err != nil {
			accountError(c, err)
			return
		}
		log.Printf("[Setup] Created initial admin %q", admin.Username)
		c.JSON(http.StatusCreated, gin.H{
			"id":             admin.ID,
			"username":       admin.Username,
			"role":           admin.Role,
			"createdAt":      admin.CreatedAt,
			"setup_complete": true,
		})
	}
}
