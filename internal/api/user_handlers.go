package api

import (
	"log"
	"net/http"
	"time"

	"fakenews/internal/auth"
	"fakenews/internal/config"
	"fakenews/internal/db"
	"fakenews/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func LoginHandler(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no users exist, indicate need for setup
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Initial setup required", "need_setup": true}})
			return
		}
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		var u user.User
		if err := db.DB.Where("username = ?", req.Username).First(&u).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid username or password"}})
			return
		}
		if err := user.CheckPassword(u.PasswordHash, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid username or password"}})
			return
		}
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"message": "Session store unavailable"}})
			return
		}
		token, err := auth.IssueToken(cfg.Server.JWTSecret, &u, auth.TokenLifetime)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to generate token"}})
			return
		}
		if err := auth.StartSession(c.Request.Context(), rdb, u.ID, token); err != nil {
			log.Printf("[Auth] Failed to store session for user %d: %v", u.ID, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"message": "Session store unavailable"}})
			return
		}
		if err := db.DB.Model(&u).Update("last_login_at", time.Now()).Error; err != nil {
			log.Printf("[Auth] Failed to record login for user %d: %v", u.ID, err)
		}
		c.JSON(http.StatusOK, LoginResponse{
			Token:    token,
			UserID:   u.ID,
			Username: u.Username,
			Role:     string(u.Role),
		})
	}
}

func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		if rdb != nil {
			_ = auth.EndSession(c.Request.Context(), rdb, userId)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		var u user.User
		if err := db.DB.First(&u, userId).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
			return
		}
		c.JSON(http.StatusOK, userJSON(u))
	}
}

// OnlineUserCountHandler returns the number of unique online users.
func OnlineUserCountHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusOK, gin.H{"online": 0})
			return
		}
		count, err := auth.OnlineUserCount(c.Request.Context(), rdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to count online users"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": count})
	}
}

func userJSON(u user.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"role":        u.Role,
		"createdAt":   u.CreatedAt,
		"lastLoginAt": u.LastLoginAt,
	}
}
