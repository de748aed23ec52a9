package api

import (
	"net/http"

	"fakenews/internal/config"

	"github.com/gin-gonic/gin"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"setup_ready": usersExist(),
	})
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"groq": gin.H{
				"model": cfg.Groq.Model,
			},
			"classifier": gin.H{
				"model": cfg.HuggingFace.Model,
			},
			"cache": gin.H{
				"enabled": cfg.Cache.Enabled,
			},
		})
	}
}

// currentUserID reads the id the auth middleware put on the context.
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func abortUnauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Not authenticated"}})
}
