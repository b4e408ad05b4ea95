package middleware

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"menu-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ContextUserIDKey gin context 中已驗證的使用者 ID
const ContextUserIDKey = "userID"

// Auth 驗證 Bearer JWT（HS256），缺少時回 401，無效時回 403
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			common.WriteError(c, common.ErrUnauthorized)
			return
		}

		userID, err := ValidateToken(strings.TrimSpace(token), key)
		if err != nil {
			common.LogDebug("Token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			common.WriteError(c, common.Wrap(common.ErrInvalidToken, err))
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// ValidateToken 驗證簽章與有效期限並取出 userId
func ValidateToken(tokenString string, secret []byte) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}

	return parseUserID(claims["userId"])
}

// parseUserID userId 可能是 JSON 數字或字串
func parseUserID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != math.Trunc(id) {
			return 0, fmt.Errorf("invalid userId %v", id)
		}
		return int64(id), nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid userId %q", id)
		}
		return n, nil
	}
	return 0, errors.New("userId claim missing")
}

// UserID 取出驗證後的使用者 ID
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
