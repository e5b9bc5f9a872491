package services

import (
	"encoding/json"
	"fmt"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"
)

func square(minLng, minLat, maxLng, maxLat float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%[1]g,%[2]g],[%[3]g,%[2]g],[%[3]g,%[4]g],[%[1]g,%[4]g],[%[1]g,%[2]g]]]}`,
		minLng, minLat, maxLng, maxLat))
}

func (s *ServicesSuite) createArea(name string, parent *int64, region json.RawMessage) *models.ServiceArea {
	a, err := s.areas.Create(s.ctx, ServiceAreaInput{NameEN: name, ParentID: parent, Region: region})
	s.Require().NoError(err)
	return a
}

func (s *ServicesSuite) TestAreaTree() {
	country := s.createArea("Country", nil, square(0, 0, 10, 10))
	north := s.createArea("North", &country.ID, square(0, 5, 10, 10))
	city := s.createArea("City", &north.ID, square(1, 6, 3, 8))
	south := s.createArea("South", &country.ID, nil)

	ids, err := s.areas.DescendantIDs(s.ctx, country.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]int64{north.ID, south.ID, city.ID}, ids)

	children, err := s.areas.Children(s.ctx, country.ID)
	s.Require().NoError(err)
	s.Len(children, 2)

	f, err := s.areas.GetServiceAreaByID(s.ctx, north.ID, i18n.French)
	s.Require().NoError(err)
	s.Equal("North", f.Properties["name"])
	s.Equal([]int64{city.ID}, f.Properties["children"])
	s.Equal(&country.ID, f.Properties["parent"])
	s.Equal(north.APIPath(), f.URL)

	hits, err := s.areas.Containing(s.ctx, 2, 7, i18n.English)
	s.Require().NoError(err)
	s.Require().Equal(3, hits.Count)
	s.Equal([]int64{city.ID, north.ID, country.ID}, []int64{hits.Features[0].ID, hits.Features[1].ID, hits.Features[2].ID})

	roots, err := s.areas.GetServiceAreas(s.ctx, models.ServiceAreaQueryParams{RootsOnly: true}, i18n.English)
	s.Require().NoError(err)
	s.Equal("FeatureCollection", roots.Type)
	// The area seeded by SetupTest is a root too.
	s.Equal(2, roots.Count)

	_, err = s.areas.DescendantIDs(s.ctx, 999)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *ServicesSuite) TestCreateAreaValidation() {
	missing := int64(999)
	_, err := s.areas.Create(s.ctx, ServiceAreaInput{ParentID: &missing, Region: json.RawMessage(`{"type":"Point","coordinates":[1,2]}`)})
	verr := s.requireFieldError(err, "parent")
	s.Contains(verr.Fields, "region")
	s.Contains(verr.Fields, "name_en")

	_, err = s.areas.Containing(s.ctx, 200, 0, i18n.English)
	s.requireFieldError(err, "location")
}
