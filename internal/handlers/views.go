package handlers

import "serviceinfo/internal/models"

// Views add the canonical url and the request-locale text to a record.
// Embedded model fields keep every language column in the payload.

type criterionView struct {
	*models.SelectionCriterion
	Text string `json:"text"`
}

type serviceView struct {
	*models.Service
	URL               string          `json:"url"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	AdditionalInfo    string          `json:"additional_info"`
	ProviderURL       string          `json:"provider_url"`
	TypeURL           string          `json:"type_url"`
	AreaURL           string          `json:"area_of_service_url"`
	SelectionCriteria []criterionView `json:"selection_criteria"`
}

type providerView struct {
	*models.Provider
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TypeURL     string `json:"type_url"`
}

type serviceTypeView struct {
	*models.ServiceType
	URL      string `json:"url"`
	Name     string `json:"name"`
	Comments string `json:"comments"`
}

type providerTypeView struct {
	*models.ProviderType
	URL  string `json:"url"`
	Name string `json:"name"`
}

type areaView struct {
	*models.ServiceArea
	URL  string `json:"url"`
	Name string `json:"name"`
}

// presenter renders records for one request.
type presenter struct {
	siteURL string
	locale  string
}

func (p presenter) abs(path string) string {
	return p.siteURL + path
}

func (p presenter) service(s *models.Service) serviceView {
	v := serviceView{
		Service:           s,
		URL:               p.abs(s.APIPath()),
		Name:              s.Name(p.locale),
		Description:       s.Description(p.locale),
		AdditionalInfo:    s.AdditionalInfo(p.locale),
		ProviderURL:       p.abs((&models.Provider{ID: s.ProviderID}).APIPath()),
		TypeURL:           p.abs((&models.ServiceType{ID: s.TypeID}).APIPath()),
		AreaURL:           p.abs((&models.ServiceArea{ID: s.AreaID}).APIPath()),
		SelectionCriteria: make([]criterionView, 0, len(s.SelectionCriteria)),
	}
	for _, c := range s.SelectionCriteria {
		v.SelectionCriteria = append(v.SelectionCriteria, criterionView{SelectionCriterion: c, Text: c.Text(p.locale)})
	}
	return v
}

func (p presenter) services(in []*models.Service) []serviceView {
	out := make([]serviceView, 0, len(in))
	for _, s := range in {
		out = append(out, p.service(s))
	}
	return out
}

func (p presenter) provider(pr *models.Provider) providerView {
	return providerView{
		Provider:    pr,
		URL:         p.abs(pr.APIPath()),
		Name:        pr.Name(p.locale),
		Description: pr.Description(p.locale),
		TypeURL:     p.abs((&models.ProviderType{ID: pr.TypeID}).APIPath()),
	}
}

func (p presenter) serviceType(t *models.ServiceType) serviceTypeView {
	return serviceTypeView{ServiceType: t, URL: p.abs(t.APIPath()), Name: t.Name(p.locale), Comments: t.Comments(p.locale)}
}

func (p presenter) providerType(t *models.ProviderType) providerTypeView {
	return providerTypeView{ProviderType: t, URL: p.abs(t.APIPath()), Name: t.Name(p.locale)}
}

func (p presenter) area(a *models.ServiceArea) areaView {
	return areaView{ServiceArea: a, URL: p.abs(a.APIPath()), Name: a.Name(p.locale)}
}
