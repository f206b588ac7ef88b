package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus/sis-api/internal/middleware"
	"github.com/opencampus/sis-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// authorizedStudentID returns the :id path parameter when the caller's token
// belongs to that student. The portal has no admin identity: a student can
// only act on their own records.
func authorizedStudentID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", false
	}
	id := c.Param("id")
	if id == "" || id != claims.StudentID {
		return "", false
	}
	return id, true
}
