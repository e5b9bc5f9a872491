package models

import (
	"fmt"
	"strings"
	"time"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/lifecycle"

	"github.com/uptrace/bun"
)

// Service is one version of a service offered by a provider. Versions of the
// same logical service form a lineage linked through UpdateOfID while an edit
// is pending.
type Service struct {
	bun.BaseModel `bun:"table:services,alias:s"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	ProviderID int64 `bun:"provider_id,notnull" json:"provider_id"`
	TypeID     int64 `bun:"type_id,notnull" json:"type_id"`
	AreaID     int64 `bun:"area_id,notnull" json:"area_id"`

	NameEN           string `bun:"name_en,notnull,default:''" json:"name_en"`
	NameAR           string `bun:"name_ar,notnull,default:''" json:"name_ar"`
	NameFR           string `bun:"name_fr,notnull,default:''" json:"name_fr"`
	DescriptionEN    string `bun:"description_en,notnull,default:''" json:"description_en"`
	DescriptionAR    string `bun:"description_ar,notnull,default:''" json:"description_ar"`
	DescriptionFR    string `bun:"description_fr,notnull,default:''" json:"description_fr"`
	AdditionalInfoEN string `bun:"additional_info_en,notnull,default:''" json:"additional_info_en"`
	AdditionalInfoAR string `bun:"additional_info_ar,notnull,default:''" json:"additional_info_ar"`
	AdditionalInfoFR string `bun:"additional_info_fr,notnull,default:''" json:"additional_info_fr"`
	CostOfService    string `bun:"cost_of_service,notnull,default:''" json:"cost_of_service"`

	OpeningHours

	// WGS84; the store derives a PostGIS point from these.
	Latitude  *float64 `bun:"latitude" json:"latitude"`
	Longitude *float64 `bun:"longitude" json:"longitude"`

	Status     lifecycle.Status `bun:"status,notnull,default:'draft'" json:"status"`
	UpdateOfID *int64           `bun:"update_of_id" json:"update_of"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	SelectionCriteria []*SelectionCriterion `bun:"rel:has-many,join:id=service_id" json:"selection_criteria"`
}

// OpeningHours holds "HH:MM" open/close times per weekday. A nil pair means
// the service is closed that day.
type OpeningHours struct {
	SundayOpen     *string `bun:"sunday_open,type:time" json:"sunday_open"`
	SundayClose    *string `bun:"sunday_close,type:time" json:"sunday_close"`
	MondayOpen     *string `bun:"monday_open,type:time" json:"monday_open"`
	MondayClose    *string `bun:"monday_close,type:time" json:"monday_close"`
	TuesdayOpen    *string `bun:"tuesday_open,type:time" json:"tuesday_open"`
	TuesdayClose   *string `bun:"tuesday_close,type:time" json:"tuesday_close"`
	WednesdayOpen  *string `bun:"wednesday_open,type:time" json:"wednesday_open"`
	WednesdayClose *string `bun:"wednesday_close,type:time" json:"wednesday_close"`
	ThursdayOpen   *string `bun:"thursday_open,type:time" json:"thursday_open"`
	ThursdayClose  *string `bun:"thursday_close,type:time" json:"thursday_close"`
	FridayOpen     *string `bun:"friday_open,type:time" json:"friday_open"`
	FridayClose    *string `bun:"friday_close,type:time" json:"friday_close"`
	SaturdayOpen   *string `bun:"saturday_open,type:time" json:"saturday_open"`
	SaturdayClose  *string `bun:"saturday_close,type:time" json:"saturday_close"`
}

// HourField is one open or close time with its field name.
type HourField struct {
	Field string
	Value *string
}

// Fields returns the hours in weekday order.
func (h *OpeningHours) Fields() []HourField {
	return []HourField{
		{"sunday_open", h.SundayOpen}, {"sunday_close", h.SundayClose},
		{"monday_open", h.MondayOpen}, {"monday_close", h.MondayClose},
		{"tuesday_open", h.TuesdayOpen}, {"tuesday_close", h.TuesdayClose},
		{"wednesday_open", h.WednesdayOpen}, {"wednesday_close", h.WednesdayClose},
		{"thursday_open", h.ThursdayOpen}, {"thursday_close", h.ThursdayClose},
		{"friday_open", h.FridayOpen}, {"friday_close", h.FridayClose},
		{"saturday_open", h.SaturdayOpen}, {"saturday_close", h.SaturdayClose},
	}
}

func (s *Service) Name(locale string) string {
	return i18n.Resolve(i18n.EnArFr(s.NameEN, s.NameAR, s.NameFR), locale)
}

func (s *Service) Description(locale string) string {
	return i18n.Resolve(i18n.EnArFr(s.DescriptionEN, s.DescriptionAR, s.DescriptionFR), locale)
}

func (s *Service) AdditionalInfo(locale string) string {
	return i18n.Resolve(i18n.EnArFr(s.AdditionalInfoEN, s.AdditionalInfoAR, s.AdditionalInfoFR), locale)
}

// MatchesText reports whether q occurs in any localized name, case-insensitively.
func (s *Service) MatchesText(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, n := range []string{s.NameEN, s.NameAR, s.NameFR} {
		if strings.Contains(strings.ToLower(n), q) {
			return true
		}
	}
	return false
}

func (s *Service) APIPath() string {
	return fmt.Sprintf("/api/v1/services/%d", s.ID)
}

// AdminEditPath is where staff review this record.
func (s *Service) AdminEditPath() string {
	return fmt.Sprintf("/admin/services/%d", s.ID)
}

// SelectionCriterion limits who can receive a service, e.g. "age under 18".
type SelectionCriterion struct {
	bun.BaseModel `bun:"table:selection_criteria,alias:sc"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	ServiceID int64  `bun:"service_id,notnull" json:"-"`
	TextEN    string `bun:"text_en,notnull,default:''" json:"text_en"`
	TextFR    string `bun:"text_fr,notnull,default:''" json:"text_fr"`
	TextAR    string `bun:"text_ar,notnull,default:''" json:"text_ar"`
}

func (c *SelectionCriterion) Text(locale string) string {
	return i18n.Resolve(i18n.EnArFr(c.TextEN, c.TextAR, c.TextFR), locale)
}

// ServiceQueryParams filters the public listing. Only current services are
// ever returned by it.
type ServiceQueryParams struct {
	TypeIDs     []int64
	AreaIDs     []int64
	ProviderIDs []int64
	Text        string
	Limit       int
	Offset      int
}
