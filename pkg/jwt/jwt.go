package jwt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"gridflow/pkg/cache"
	"gridflow/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
)

const (
	RoleOperator = "operator" // 可以创建和控制运行
	RoleViewer   = "viewer"   // 只读
)

type CustomClaims struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// CanControl 是否允许修改运行状态
func (claims *CustomClaims) CanControl() bool {
	return claims.Role == RoleOperator
}

func BuildClaims(issuer, operator, role string, ttl time.Duration) *CustomClaims {
	now := time.Now()
	return &CustomClaims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
}

func GenToken(c *CustomClaims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secretKey))
}

// ParseToken 解析并校验 token，只接受 HMAC 签名
func ParseToken(jwtStr, secretKey string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(jwtStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func getBlackListKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "jwt_black_list:" + hex.EncodeToString(sum[:])
}

// JoinBlackList 注销 token，保留到其过期为止；未配置 redis 时忽略
func JoinBlackList(ctx context.Context, tokenStr string, secretKey string) error {
	claims, err := ParseToken(tokenStr, secretKey)
	if err != nil {
		return err
	}
	rc := cache.GetRedisClient()
	if rc == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return rc.SetNX(ctx, getBlackListKey(tokenStr), time.Now().Unix(), ttl).Err()
}

func IsInBlackList(ctx context.Context, token string) bool {
	rc := cache.GetRedisClient()
	if rc == nil {
		return false
	}
	err := rc.Get(ctx, getBlackListKey(token)).Err()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Errorf("Redis连接异常:%v", err.Error())
		}
		return false
	}
	return true
}
