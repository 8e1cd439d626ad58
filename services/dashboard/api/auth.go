package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

const (
	contextUsernameKey = "username"
	contextRoleKey     = "role"
	jwtHeader          = `{"alg":"HS256","typ":"JWT"}`
)

var errInvalidToken = errors.New("invalid token")

type sessionClaims struct {
	Sub  string      `json:"sub"`
	Role common.Role `json:"role"`
	Exp  int64       `json:"exp"`
}

func (s *server) sign(message string) []byte {
	macd := hmac.New(sha256.New, s.jwtSecret)
	macd.Write([]byte(message))

	return macd.Sum(nil)
}

// issueToken generates a basic HS256 JWT (Header.Payload.Signature)
func (s *server) issueToken(user common.User) (string, error) {
	claims, err := json.Marshal(sessionClaims{
		Sub:  user.Username,
		Role: user.Role,
		Exp:  time.Now().Add(s.sessionLifetime).Unix(),
	})
	if err != nil {
		return "", err
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(jwtHeader))
	payload := base64.RawURLEncoding.EncodeToString(claims)

	msg := header + "." + payload
	sig := base64.RawURLEncoding.EncodeToString(s.sign(msg))

	return msg + "." + sig, nil
}

func (s *server) verifyToken(token string) (*sessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, errInvalidToken
	}
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return nil, errInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errInvalidToken
	}

	claims := &sessionClaims{}
	err = json.Unmarshal(payloadBytes, claims)
	if err != nil || len(claims.Sub) == 0 || !claims.Role.IsValid() {
		return nil, errInvalidToken
	}

	return claims, nil
}

// --- Middlewares ---

func (s *server) authAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.serviceKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *server) authJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := s.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if time.Now().Unix() > claims.Exp {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}

		c.Set(contextUsernameKey, claims.Sub)
		c.Set(contextRoleKey, claims.Role)
		c.Next()
	}
}

func requireRole(allowed func(role common.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := sessionUser(c)
		if !allowed(viewer.Role) {
			log.Debug("forbidden", "username", viewer.Username, "role", viewer.Role, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func isSuperAdmin(role common.Role) bool {
	return role == common.RoleSuperAdmin
}

func sessionUser(c *gin.Context) common.User {
	user := common.User{
		Username: c.GetString(contextUsernameKey),
	}
	role, ok := c.Get(contextRoleKey)
	if ok {
		user.Role, _ = role.(common.Role)
	}

	return user
}
