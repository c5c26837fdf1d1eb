package iam

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the flat payload of an administrator token.
type AdminClaims struct {
	Subject string
	Role    string
	Iss     string
	Aud     string
	Iat     int64
	Exp     int64
}

// ToClaims converts AdminClaims into jwt.MapClaims for signing. Zero
// fields are omitted.
func ToClaims(ac *AdminClaims) jwt.MapClaims {
	mc := jwt.MapClaims{}
	if ac.Subject != "" {
		mc["sub"] = ac.Subject
	}
	if ac.Role != "" {
		mc["role"] = ac.Role
	}
	if ac.Iss != "" {
		mc["iss"] = ac.Iss
	}
	if ac.Aud != "" {
		mc["aud"] = ac.Aud
	}
	if ac.Iat != 0 {
		mc["iat"] = ac.Iat
	}
	if ac.Exp != 0 {
		mc["exp"] = ac.Exp
	}
	return mc
}

// FromMapClaims maps verified claims into AdminClaims. The subject may be a
// string or a number.
func FromMapClaims(mc jwt.MapClaims) (*AdminClaims, error) {
	ac := &AdminClaims{}

	if sub, ok := mc["sub"]; ok {
		switch v := sub.(type) {
		case string:
			ac.Subject = v
		case float64:
			ac.Subject = strconv.FormatInt(int64(v), 10)
		default:
			return nil, fmt.Errorf("unsupported sub claim type %T", sub)
		}
	}
	if role, ok := mc["role"].(string); ok {
		ac.Role = role
	}
	if iss, ok := mc["iss"].(string); ok {
		ac.Iss = iss
	}
	if aud, ok := mc["aud"].(string); ok {
		ac.Aud = aud
	}
	if iat, ok := mc["iat"].(float64); ok {
		ac.Iat = int64(iat)
	}
	if exp, ok := mc["exp"].(float64); ok {
		ac.Exp = int64(exp)
	}
	return ac, nil
}
