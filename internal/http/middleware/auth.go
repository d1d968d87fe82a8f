package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the trusted identity minted by the portal's auth service.
// This service never verifies credentials itself; it only checks the token
// signature and trusts the claims.
type Principal struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type AuthClaims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

const principalKey = "principal"

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}

		p, err := ParseToken(strings.TrimPrefix(h, "Bearer "), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// ParseToken validates a bearer token and returns the principal inside it.
// The websocket handshake reuses this for the handshake token, which shares
// the header token's format.
func ParseToken(tokenStr, jwtSecret string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AuthClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		return Principal{}, err
	}

	claims := token.Claims.(*AuthClaims)
	return Principal{ID: claims.UserID, Name: claims.Name, Role: claims.Role}, nil
}

func MustPrincipal(c *gin.Context) Principal {
	v, _ := c.Get(principalKey)
	return v.(Principal)
}

func MustUserID(c *gin.Context) uint {
	return MustPrincipal(c).ID
}
