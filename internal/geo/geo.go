// Package geo parses GeoJSON area polygons and answers point-in-polygon
// questions for stores that have no spatial engine. PostGIS does the same
// work with ST_Contains in the postgres store.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

// Point is a WGS84 coordinate.
type Point struct {
	Lng float64
	Lat float64
}

// Polygon is a list of rings; the first is the outer ring, the rest are holes.
type Polygon struct {
	Rings [][]Point
	BBox  [4]float64 // minLng, minLat, maxLng, maxLat
}

// Shape is a Polygon or MultiPolygon.
type Shape []Polygon

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Parse reads a GeoJSON Polygon or MultiPolygon geometry.
func Parse(raw json.RawMessage) (Shape, error) {
	var g geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		p, err := polygon(coords)
		if err != nil {
			return nil, err
		}
		return Shape{p}, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		shape := make(Shape, 0, len(coords))
		for _, c := range coords {
			p, err := polygon(c)
			if err != nil {
				return nil, err
			}
			shape = append(shape, p)
		}
		return shape, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.Type)
	}
}

func polygon(coords [][][]float64) (Polygon, error) {
	if len(coords) == 0 {
		return Polygon{}, fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	p := Polygon{Rings: make([][]Point, 0, len(coords))}
	for i, ring := range coords {
		if len(ring) < 4 {
			return Polygon{}, fmt.Errorf("%w: ring %d needs at least 4 positions", ErrInvalidGeometry, i)
		}
		pts := make([]Point, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return Polygon{}, fmt.Errorf("%w: position needs lng and lat", ErrInvalidGeometry)
			}
			pts = append(pts, Point{Lng: pos[0], Lat: pos[1]})
		}
		p.Rings = append(p.Rings, pts)
	}
	p.BBox = bbox(p.Rings[0])
	return p, nil
}

func bbox(ring []Point) [4]float64 {
	b := [4]float64{ring[0].Lng, ring[0].Lat, ring[0].Lng, ring[0].Lat}
	for _, pt := range ring[1:] {
		b[0] = min(b[0], pt.Lng)
		b[1] = min(b[1], pt.Lat)
		b[2] = max(b[2], pt.Lng)
		b[3] = max(b[3], pt.Lat)
	}
	return b
}

// Contains reports whether pt lies inside any polygon of s.
func (s Shape) Contains(pt Point) bool {
	for _, p := range s {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// Contains uses even-odd ray casting: inside the outer ring and outside every hole.
func (p Polygon) Contains(pt Point) bool {
	if len(p.Rings) == 0 || !inBBox(pt, p.BBox) {
		return false
	}
	if !inRing(pt, p.Rings[0]) {
		return false
	}
	for _, hole := range p.Rings[1:] {
		if inRing(pt, hole) {
			return false
		}
	}
	return true
}

func inRing(pt Point, ring []Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if (yi > pt.Lat) != (yj > pt.Lat) && pt.Lng < (xj-xi)*(pt.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func inBBox(pt Point, b [4]float64) bool {
	return pt.Lng >= b[0] && pt.Lng <= b[2] && pt.Lat >= b[1] && pt.Lat <= b[3]
}

// ValidPoint reports whether lng/lat are inside WGS84 bounds.
func ValidPoint(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
