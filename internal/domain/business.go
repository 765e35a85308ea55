package domain

// Business - нормализованная строка результата, все поля строками.
type Business struct {
	ID           string
	Name         string
	Rating       string
	ReviewCount  string
	Address      string
	URL          string
	RatingImgURL string
	Categories   string
	Latitude     string
	Longitude    string
	SnippetText  string
	ImageURL     string
	IsClosed     string
}

const CategorySeparator = "^"

var header = []string{
	"business_id",
	"name",
	"rating",
	"review_count",
	"address",
	"url",
	"rating_img_url",
	"categories",
	"latitude",
	"longitude",
	"snippet_text",
	"image_url",
	"is_closed",
}

// Header returns a fresh copy of the output column names.
func Header() []string {
	h := make([]string, len(header))
	copy(h, header)
	return h
}

// Record returns the field values in Header order.
func (b Business) Record() []string {
	return []string{
		b.ID,
		b.Name,
		b.Rating,
		b.ReviewCount,
		b.Address,
		b.URL,
		b.RatingImgURL,
		b.Categories,
		b.Latitude,
		b.Longitude,
		b.SnippetText,
		b.ImageURL,
		b.IsClosed,
	}
}
