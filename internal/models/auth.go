package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	AuthLocal = "local"
	AuthLDAP  = "ldap"
)

type User struct {
	bun.BaseModel `bun:"table:users"`
	ID            uuid.UUID  `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull,default:''" json:"-"`
	TokenVersion  int        `bun:"token_version,notnull,default:0" json:"token_version"`
	Roles         []string   `bun:"roles,type:text[],array" json:"roles"`
	Provider      string     `bun:"provider,notnull,default:'local'" json:"provider"`
	Name          string     `bun:"name,notnull,default:''" json:"name"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	ActivationKey string     `bun:"activation_key,notnull,default:''" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	LastLoginAt   *time.Time `bun:"last_login_at" json:"last_login_at"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
