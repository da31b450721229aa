package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// GeoPoint точка WGS-84 в градусах
type GeoPoint struct {
	Lat float64
	Lng float64
}

// NewGeoPoint проверяет диапазоны координат
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidGeometry)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidGeometry, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidGeometry, p.Lng)
	}
	return nil
}

// Orb порядок координат orb: долгота первой
func (p GeoPoint) Orb() orb.Point { return orb.Point{p.Lng, p.Lat} }

// DistanceKm геодезическое расстояние по сфере (haversine)
func (p GeoPoint) DistanceKm(q GeoPoint) float64 {
	return geo.DistanceHaversine(p.Orb(), q.Orb()) / 1000
}

// MarshalJSON пишет точку как GeoJSON: {"type":"Point","coordinates":[lng, lat]}
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(p.Orb()))
}

type rawPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var raw rawPoint
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if raw.Type != "Point" {
		return fmt.Errorf("%w: geo type must be Point", ErrInvalidGeometry)
	}
	if len(raw.Coordinates) != 2 {
		return fmt.Errorf("%w: coordinates must be length 2", ErrInvalidGeometry)
	}
	pt, err := NewGeoPoint(raw.Coordinates[1], raw.Coordinates[0])
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// GeoPolygon полигон WGS-84 в порядке orb (долгота первой). Первое кольцо внешнее,
// каждое кольцо замкнуто и содержит не меньше четырёх точек.
type GeoPolygon struct {
	orb.Polygon
}

func (p GeoPolygon) Validate() error {
	if len(p.Polygon) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	for _, ring := range p.Polygon {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring needs at least 4 points", ErrInvalidGeometry)
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring is not closed", ErrInvalidGeometry)
		}
		for _, pt := range ring {
			if err := (GeoPoint{Lat: pt.Lat(), Lng: pt.Lon()}).Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalJSON пишет GeoJSON {"type":"Polygon","coordinates":[[[lng, lat], ...]]}
func (p GeoPolygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(p.Polygon))
}

func (p *GeoPolygon) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	poly, ok := g.Coordinates.(orb.Polygon)
	if !ok {
		return fmt.Errorf("%w: geo type must be Polygon", ErrInvalidGeometry)
	}
	out := GeoPolygon{Polygon: poly}
	if err := out.Validate(); err != nil {
		return err
	}
	*p = out
	return nil
}
