package admins

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// AdminDTO is the public view of a staff account.
type AdminDTO struct {
	ID          uuid.UUID          `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	Role        enums.AdminRole    `json:"role"`
	IsActive    bool               `json:"is_active"`
	Permissions []enums.Permission `json:"permissions"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// FromModel maps the DB model into the API view.
func FromModel(m *models.Admin) *AdminDTO {
	if m == nil {
		return nil
	}
	return &AdminDTO{
		ID:          m.ID,
		Username:    m.Username,
		Email:       m.Email,
		Role:        m.Role,
		IsActive:    m.IsActive,
		Permissions: Permissions(m),
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
	}
}

// CreateInput describes a new staff account.
type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     enums.AdminRole
}
