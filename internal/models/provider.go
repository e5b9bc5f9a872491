package models

import (
	"fmt"
	"time"

	"serviceinfo/internal/i18n"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider is an organization offering services. Each provider owns exactly
// one user account; providers are never deleted.
type Provider struct {
	bun.BaseModel `bun:"table:providers,alias:p"`

	ID                           int64     `bun:"id,pk,autoincrement" json:"id"`
	NameEN                       string    `bun:"name_en,notnull,default:''" json:"name_en"`
	NameAR                       string    `bun:"name_ar,notnull,default:''" json:"name_ar"`
	NameFR                       string    `bun:"name_fr,notnull,default:''" json:"name_fr"`
	TypeID                       int64     `bun:"type_id,notnull" json:"type_id"`
	PhoneNumber                  string    `bun:"phone_number,notnull" json:"phone_number"`
	Website                      string    `bun:"website,notnull,default:''" json:"website"`
	DescriptionEN                string    `bun:"description_en,notnull,default:''" json:"description_en"`
	DescriptionAR                string    `bun:"description_ar,notnull,default:''" json:"description_ar"`
	DescriptionFR                string    `bun:"description_fr,notnull,default:''" json:"description_fr"`
	UserID                       uuid.UUID `bun:"user_id,type:uuid,notnull,unique" json:"user_id"`
	NumberOfMonthlyBeneficiaries int       `bun:"number_of_monthly_beneficiaries,notnull" json:"number_of_monthly_beneficiaries"`
	CreatedAt                    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt                    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (p *Provider) Name(locale string) string {
	return i18n.Resolve(i18n.EnArFr(p.NameEN, p.NameAR, p.NameFR), locale)
}

func (p *Provider) Description(locale string) string {
	return i18n.Resolve(i18n.EnArFr(p.DescriptionEN, p.DescriptionAR, p.DescriptionFR), locale)
}

func (p *Provider) APIPath() string {
	return fmt.Sprintf("/api/v1/providers/%d", p.ID)
}

// String is the provider's English name, as used in ticket summaries.
func (p *Provider) String() string {
	return p.NameEN
}
