// Package normalize maps raw search API businesses to fixed-shape output rows.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
)

const snippetNewline = "***"

// Result is either a row or the reason the raw item was skipped.
type Result struct {
	Row  domain.Business
	Skip string
}

func (r Result) OK() bool {
	return r.Skip == ""
}

type rawBusiness struct {
	ID           *string           `json:"id"`
	Name         *string           `json:"name"`
	Rating       *json.Number      `json:"rating"`
	ReviewCount  *int              `json:"review_count"`
	URL          string            `json:"url"`
	RatingImgURL string            `json:"rating_img_url"`
	ImageURL     string            `json:"image_url"`
	SnippetText  string            `json:"snippet_text"`
	IsClosed     *bool             `json:"is_closed"`
	Categories   []json.RawMessage `json:"categories"`
	Location     *rawLocation      `json:"location"`
	Coordinates  *rawCoordinate    `json:"coordinates"`
}

type rawLocation struct {
	Address    json.RawMessage `json:"address"`
	Coordinate *rawCoordinate  `json:"coordinate"`
}

type rawCoordinate struct {
	Latitude  *json.Number `json:"latitude"`
	Longitude *json.Number `json:"longitude"`
}

type rawCategoryObject struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// Numbers are copied as the API wrote them (4.0 stays "4.0").
//
// Normalize never fails: an item without id, name, rating or review_count (or
// one that is not a JSON object) comes back as a skip, every other absent
// field becomes "".
func Normalize(raw json.RawMessage) Result {
	var b rawBusiness
	if err := json.Unmarshal(raw, &b); err != nil {
		return Result{Skip: "malformed business: " + err.Error()}
	}

	switch {
	case b.ID == nil || *b.ID == "":
		return Result{Skip: "missing id"}
	case b.Name == nil:
		return Result{Skip: "missing name (id " + *b.ID + ")"}
	case b.Rating == nil:
		return Result{Skip: "missing rating (id " + *b.ID + ")"}
	case b.ReviewCount == nil:
		return Result{Skip: "missing review_count (id " + *b.ID + ")"}
	}

	row := domain.Business{
		ID:           *b.ID,
		Name:         *b.Name,
		Rating:       b.Rating.String(),
		ReviewCount:  strconv.Itoa(*b.ReviewCount),
		URL:          b.URL,
		RatingImgURL: b.RatingImgURL,
		ImageURL:     b.ImageURL,
		SnippetText:  strings.ReplaceAll(b.SnippetText, "\n", snippetNewline),
		Categories:   flattenCategories(b.Categories),
	}

	if b.IsClosed != nil {
		row.IsClosed = strconv.FormatBool(*b.IsClosed)
	}

	coord := b.Coordinates
	if b.Location != nil {
		row.Address = flattenAddress(b.Location.Address)
		if b.Location.Coordinate != nil {
			coord = b.Location.Coordinate
		}
	}
	if coord != nil {
		if coord.Latitude != nil {
			row.Latitude = coord.Latitude.String()
		}
		if coord.Longitude != nil {
			row.Longitude = coord.Longitude.String()
		}
	}

	return Result{Row: row}
}

// NormalizePage keeps page order for the rows and returns skip reasons separately.
func NormalizePage(raws []json.RawMessage) ([]domain.Business, []string) {
	rows := make([]domain.Business, 0, len(raws))
	var skipped []string
	for _, raw := range raws {
		res := Normalize(raw)
		if !res.OK() {
			skipped = append(skipped, res.Skip)
			continue
		}
		rows = append(rows, res.Row)
	}
	return rows, skipped
}

// flattenCategories берет второй элемент каждой пары [grouping, label].
// Объекты {alias, title} тоже принимаются, берется alias.
func flattenCategories(raw []json.RawMessage) string {
	labels := make([]string, 0, len(raw))
	for _, c := range raw {
		var pair []string
		if err := json.Unmarshal(c, &pair); err == nil {
			if len(pair) >= 2 {
				labels = append(labels, pair[1])
			}
			continue
		}
		var obj rawCategoryObject
		if err := json.Unmarshal(c, &obj); err == nil && obj.Alias != "" {
			labels = append(labels, obj.Alias)
		}
	}
	return strings.Join(labels, domain.CategorySeparator)
}

func flattenAddress(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ", ")
	}
	var line string
	if err := json.Unmarshal(raw, &line); err == nil {
		return line
	}
	return ""
}
