package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"brewfeed/internal/config"
)

var (
	// ErrInvalidToken 表示令牌无法解析、签名错误或已过期。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked 表示令牌已注销 (jti 在黑名单中)。
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims 是 JWT 中的自定义声明，嵌入了 jwt.RegisteredClaims。
// Subject 与 UserID 相同，ID 是 jti。
type Claims struct {
	UserID uuid.UUID `json:"userId"`
	jwt.RegisteredClaims
}

// GenerateToken 为指定用户生成一个新的 JWT，同时返回其 claims 以便调用方记录 jti 和过期时间。
func GenerateToken(userID uuid.UUID, authCfg config.AuthConfig) (string, *Claims, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("生成 JWT ID 失败: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(authCfg.JWTExpiry)),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    authCfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", nil, fmt.Errorf("生成 JWT 失败: %w", err)
	}
	return tokenString, claims, nil
}

// ValidateToken 验证给定的 JWT 字符串的有效性。blacklist 可以为 nil。
func ValidateToken(ctx context.Context, tokenString string, authCfg config.AuthConfig, blacklist TokenBlacklist) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if authCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(authCfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(authCfg.JWTSecretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	if blacklist != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
		}
		isRevoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// 无法确认时拒绝
			return nil, fmt.Errorf("检查 Token 黑名单失败: %w", err)
		}
		if isRevoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
