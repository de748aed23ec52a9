package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"fakenews/internal/auth"
	"fakenews/internal/db"
	"fakenews/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func requireAdminRole(c *gin.Context) bool {
	role, _ := c.Get("userRole")
	if role != string(user.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Forbidden"}})
		return false
	}
	return true
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid id"}})
		return 0, false
	}
	return uint(id), true
}

// GET /users  [admin only]
func ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdminRole(c) {
			return
		}
		var users []user.User
		if err := db.DB.Order("id").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "List error"}})
			return
		}
		result := make([]gin.H, 0, len(users))
		for _, u := range users {
			result = append(result, userJSON(u))
		}
		c.JSON(http.StatusOK, result)
	}
}

// POST /users  [admin only]
func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdminRole(c) {
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Missing username or password"}})
			return
		}
		role := user.RoleUser
		if req.Role == string(user.RoleAdmin) {
			role = user.RoleAdmin
		}
		newUser, err := newAccount(db.DB.WithContext(c.Request.Context()), req.Username, req.Password, role)
		if err != nil {
			accountError(c, err)
			return
		}
		c.JSON(http.StatusCreated, userJSON(newUser))
	}
}

// GET /users/me
func GetMeHandler() gin.HandlerFunc {
	return MeHandler()
}

type UpdateMeRequest struct {
	Password string `json:"password,omitempty"`
}

// PUT /users/me
func UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		var req UpdateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		var u user.User
		if err := db.DB.First(&u, userId).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
			return
		}
		if req.Password != "" {
			pwHash, err := user.HashPassword(req.Password)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Password hash failed"}})
				return
			}
			u.PasswordHash = pwHash
		}
		if err := db.DB.Save(&u).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Update error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated"})
	}
}

// DELETE /users/me
func DeleteMeHandler(rdb *redis.Client, detections DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		if err := deleteUser(c, rdb, detections, userId); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Delete error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

// GET /users/:id  [admin only]
func GetUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdminRole(c) {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		var u user.User
		if err := db.DB.First(&u, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
			return
		}
		c.JSON(http.StatusOK, userJSON(u))
	}
}

type UpdateUserRequest struct {
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

// PUT /users/:id  [admin only]
func UpdateUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdminRole(c) {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		var u user.User
		if err := db.DB.First(&u, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
			return
		}
		if req.Password != "" {
			pwHash, err := user.HashPassword(req.Password)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Password hash failed"}})
				return
			}
			u.PasswordHash = pwHash
		}
		if user.ValidRole(req.Role) {
			u.Role = user.Role(req.Role)
		}
		if err := db.DB.Save(&u).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Update error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated"})
	}
}

// DELETE /users/:id  [admin only]
func DeleteUserByIdHandler(rdb *redis.Client, detections DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdminRole(c) {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := deleteUser(c, rdb, detections, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Delete error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

// deleteUser removes the user and their detection history in one
// transaction, then drops their session.
func deleteUser(c *gin.Context, rdb *redis.Client, detections DetectionStore, id uint) error {
	ctx := c.Request.Context()
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if detections != nil {
			if err := detections.PurgeUser(ctx, tx, id); err != nil {
				log.Printf("[Users] Failed to remove detections of user %d: %v", id, err)
				return err
			}
		}
		res := tx.Delete(&user.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rdb != nil {
		_ = auth.EndSession(ctx, rdb, id)
	}
	return nil
}
