package iam

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/podium/pkg/plog"
)

func (s *IAMService) Middleware(logger *plog.Logger) func(ctx huma.Context, next func(huma.Context)) {
	if logger == nil {
		logger = plog.NewDiscard()
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		authHeader := ctx.Header("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := s.ValidateToken(parts[1]); err == nil {
					logger.Debug("authenticated admin", "sub", claims.Subject)
					ctx = huma.WithValue(ctx, principalKey, claims)
				} else {
					logger.Warn("invalid token", "error", err)
				}
			}
		}

		next(ctx)
	}
}
