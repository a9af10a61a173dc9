package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const operatorClaimsKey = "operator_claims"

// RequireBearerToken returns a gin middleware that validates the
// Authorization header against the given JWT manager and stores the
// resulting claims in the request context.
func RequireBearerToken(manager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": ErrMissingToken.Error()})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(401, gin.H{"error": ErrInvalidToken.Error()})
			return
		}

		claims, err := manager.ValidateAccessToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": err.Error()})
			return
		}

		c.Set(operatorClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext retrieves the validated operator claims from a gin
// request context populated by RequireBearerToken.
func ClaimsFromContext(c *gin.Context) (*OperatorClaims, bool) {
	v, ok := c.Get(operatorClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*OperatorClaims)
	return claims, ok
}
