package iam

import "context"

type ctxKey string

const principalKey ctxKey = "podium.principal"

func (s *IAMService) Principal(ctx context.Context) (*AdminClaims, bool) {
	if v := ctx.Value(principalKey); v != nil {
		if p, ok := v.(*AdminClaims); ok {
			return p, true
		}
	}
	return nil, false
}

// Get returns the authenticated admin or nil.
func (s *IAMService) Get(ctx context.Context) *AdminClaims {
	if s == nil {
		return nil
	}
	if p, ok := s.Principal(ctx); ok {
		return p
	}
	return nil
}
