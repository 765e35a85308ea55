package domain

import (
	"strconv"
	"strings"
)

// Region - прямоугольник поиска (south-west / north-east углы).
// Долготы не упорядочиваем, wraparound через 180 не поддерживается.
type Region struct {
	ID    string
	SWLat float64
	SWLon float64
	NELat float64
	NELon float64
}

func (r Region) Validate() error {
	if r.SWLat > r.NELat {
		return ErrInvalidRegion
	}
	return nil
}

// Bounds returns the API bounding box encoding "sw_lat,sw_lon|ne_lat,ne_lon".
func (r Region) Bounds() string {
	var sb strings.Builder
	sb.WriteString(formatCoord(r.SWLat))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(r.SWLon))
	sb.WriteByte('|')
	sb.WriteString(formatCoord(r.NELat))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(r.NELon))
	return sb.String()
}

func (r Region) LatSpan() float64 {
	return r.NELat - r.SWLat
}

// LatBands splits the region into n latitude bands of equal span.
// Longitudes stay as is. The first band starts at SWLat, the last one ends at
// NELat and neighbours share the same boundary value.
func (r Region) LatBands(n int) []Region {
	if n < 1 {
		n = 1
	}

	step := r.LatSpan() / float64(n)
	bands := make([]Region, n)
	for i := 0; i < n; i++ {
		band := Region{
			ID:    r.ID,
			SWLon: r.SWLon,
			NELon: r.NELon,
			SWLat: r.SWLat + step*float64(i),
			NELat: r.SWLat + step*float64(i+1),
		}
		if i == 0 {
			band.SWLat = r.SWLat
		}
		if i == n-1 {
			band.NELat = r.NELat
		}
		bands[i] = band
	}
	return bands
}

// ParseBounds is the inverse of Region.Bounds. The returned region has no ID.
func ParseBounds(s string) (Region, error) {
	sw, ne, ok := strings.Cut(s, "|")
	if !ok {
		return Region{}, ErrInvalidBounds
	}

	swLat, swLon, err := parsePair(sw)
	if err != nil {
		return Region{}, err
	}
	neLat, neLon, err := parsePair(ne)
	if err != nil {
		return Region{}, err
	}

	return Region{SWLat: swLat, SWLon: swLon, NELat: neLat, NELon: neLon}, nil
}

func parsePair(s string) (float64, float64, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, ErrInvalidBounds
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, ErrInvalidBounds
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, ErrInvalidBounds
	}
	return lat, lon, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
