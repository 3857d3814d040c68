package middleware

import (
	"net/http"
	"strings"

	"github.com/automas/booking-engine/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OperatorContextKey is the key used to store operator information in Gin context
const OperatorContextKey = "operator"

// OperatorContext represents the authenticated operator
type OperatorContext struct {
	OperatorID string   `json:"operator_id"`
	Roles      []string `json:"roles"`
}

// OperatorAuth validates operator JWTs on admin routes
func OperatorAuth(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		})

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Operator auth failed: missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			log.Warn("Operator auth failed: invalid authorization format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			return
		}
		tokenString := strings.TrimSpace(parts[1])

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				log.WithError(err).Warn("Operator auth failed: token expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Operator token has expired",
					"code":    "TOKEN_EXPIRED",
				})
				return
			}
			log.WithError(err).Warn("Operator auth failed: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid operator token",
				"code":    "INVALID_TOKEN",
			})
			return
		}

		c.Set(OperatorContextKey, OperatorContext{
			OperatorID: claims.OperatorID,
			Roles:      claims.Roles,
		})
		c.Next()
	}
}

// RequireRole allows the request only when the operator has one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, exists := GetOperatorContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Operator context not found",
				"code":    "MISSING_OPERATOR_CONTEXT",
			})
			return
		}

		claims := jwt.Claims{Roles: operator.Roles}
		if !claims.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You don't have permission to access this resource",
				"code":    "INSUFFICIENT_PERMISSIONS",
			})
			return
		}

		c.Next()
	}
}

// GetOperatorContext retrieves the operator from Gin context
func GetOperatorContext(c *gin.Context) (OperatorContext, bool) {
	value, exists := c.Get(OperatorContextKey)
	if !exists {
		return OperatorContext{}, false
	}

	operator, ok := value.(OperatorContext)
	if !ok {
		return OperatorContext{}, false
	}

	return operator, true
}
