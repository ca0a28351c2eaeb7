package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AdminID     uuid.UUID
	Username    string
	Role        enums.AdminRole
	Permissions []enums.Permission
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to admin clients.
type AccessTokenClaims struct {
	AdminID     uuid.UUID          `json:"admin_id"`
	Username    string             `json:"username"`
	Role        enums.AdminRole    `json:"role"`
	Permissions []enums.Permission `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Has reports whether the token grants permission p.
func (c *AccessTokenClaims) Has(p enums.Permission) bool {
	if c == nil {
		return false
	}
	for _, granted := range c.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
