package models

import (
	"fmt"

	"serviceinfo/internal/i18n"

	"github.com/uptrace/bun"
)

// ProviderType is static reference data, edited by administrators only.
type ProviderType struct {
	bun.BaseModel `bun:"table:provider_types,alias:pt"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	Number int    `bun:"number,notnull,unique" json:"number"`
	NameEN string `bun:"name_en,notnull,default:''" json:"name_en"`
	NameAR string `bun:"name_ar,notnull,default:''" json:"name_ar"`
	NameFR string `bun:"name_fr,notnull,default:''" json:"name_fr"`
}

func (t *ProviderType) Name(locale string) string {
	return i18n.Resolve(i18n.EnArFr(t.NameEN, t.NameAR, t.NameFR), locale)
}

func (t *ProviderType) APIPath() string {
	return fmt.Sprintf("/api/v1/provider-types/%d", t.ID)
}

// ServiceType is static reference data, edited by administrators only.
type ServiceType struct {
	bun.BaseModel `bun:"table:service_types,alias:st"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Number     int    `bun:"number,notnull,unique" json:"number"`
	NameEN     string `bun:"name_en,notnull,default:''" json:"name_en"`
	NameAR     string `bun:"name_ar,notnull,default:''" json:"name_ar"`
	NameFR     string `bun:"name_fr,notnull,default:''" json:"name_fr"`
	CommentsEN string `bun:"comments_en,notnull,default:''" json:"comments_en"`
	CommentsAR string `bun:"comments_ar,notnull,default:''" json:"comments_ar"`
	CommentsFR string `bun:"comments_fr,notnull,default:''" json:"comments_fr"`
}

func (t *ServiceType) Name(locale string) string {
	return i18n.Resolve(i18n.EnArFr(t.NameEN, t.NameAR, t.NameFR), locale)
}

func (t *ServiceType) Comments(locale string) string {
	return i18n.Resolve(i18n.EnArFr(t.CommentsEN, t.CommentsAR, t.CommentsFR), locale)
}

func (t *ServiceType) APIPath() string {
	return fmt.Sprintf("/api/v1/service-types/%d", t.ID)
}
