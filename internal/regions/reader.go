// Package regions reads the list of top-level search regions.
package regions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
)

const Delimiter = ';'

var (
	ErrMalformedRecord = errors.New("malformed region record")
	ErrMissingColumn   = errors.New("missing region column")
)

// Columns that must be present in the header row. Anything else is ignored.
var requiredColumns = []string{"geoid", "minlat", "maxlat", "minlon", "maxlon"}

func ReadFile(path string) ([]domain.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a ';'-delimited file with a header row. Column order does not
// matter, columns are looked up by name.
func Read(r io.Reader) ([]domain.Region, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var regions []domain.Region
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		region, err := parseRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		regions = append(regions, region)
	}

	return regions, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		idx[name] = i
	}

	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return idx, nil
}

func parseRecord(record []string, idx map[string]int) (domain.Region, error) {
	field := func(name string) (string, error) {
		i := idx[name]
		if i >= len(record) {
			return "", fmt.Errorf("%w: no %s value", ErrMalformedRecord, name)
		}
		return strings.TrimSpace(record[i]), nil
	}
	coord := func(name string) (float64, error) {
		s, err := field(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrMalformedRecord, name, s)
		}
		return v, nil
	}

	var (
		region domain.Region
		err    error
	)
	if region.ID, err = field("geoid"); err != nil {
		return domain.Region{}, err
	}
	if region.SWLat, err = coord("minlat"); err != nil {
		return domain.Region{}, err
	}
	if region.NELat, err = coord("maxlat"); err != nil {
		return domain.Region{}, err
	}
	if region.SWLon, err = coord("minlon"); err != nil {
		return domain.Region{}, err
	}
	if region.NELon, err = coord("maxlon"); err != nil {
		return domain.Region{}, err
	}

	if err := region.Validate(); err != nil {
		return domain.Region{}, fmt.Errorf("%w: geoid %s: %v", ErrMalformedRecord, region.ID, err)
	}
	return region, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
