package file

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
)

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = Delimiter
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestSink_WritesHeaderThenRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(Config{Dir: dir})
	reg := sink.NewRegistry(s, zap.NewNop(), nil)

	require.NoError(t, reg.Append(ctx, "pizza", domain.Header(), []domain.Business{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}))
	require.NoError(t, reg.Append(ctx, "pizza", domain.Header(), []domain.Business{{ID: "c", Name: "C|D"}}))
	require.NoError(t, reg.Close())

	path := filepath.Join(dir, "yelp-biz-result-pizza.csv")
	assert.Equal(t, path, s.Path("pizza"))

	records := readRecords(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, domain.Header(), records[0])
	assert.Equal(t, "a", records[1][0])
	assert.Equal(t, "b", records[2][0])
	assert.Equal(t, "C|D", records[3][1])
	for _, rec := range records {
		assert.Len(t, rec, 13)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "business_id|name|rating|"))
}

func TestSink_ReopenDoesNotDuplicateHeader(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, id := range []string{"a", "b"} {
		reg := sink.NewRegistry(New(Config{Dir: dir}), zap.NewNop(), nil)
		require.NoError(t, reg.Append(ctx, "pizza", domain.Header(), []domain.Business{{ID: id}}))
		require.NoError(t, reg.Close())
	}

	records := readRecords(t, filepath.Join(dir, "yelp-biz-result-pizza.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, "business_id", records[0][0])
	assert.Equal(t, "a", records[1][0])
	assert.Equal(t, "b", records[2][0])
}

func TestSink_OneFilePerTerm(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := sink.NewRegistry(New(Config{Dir: dir, Prefix: "out-"}), zap.NewNop(), nil)

	require.NoError(t, reg.Append(ctx, "pizza", domain.Header(), []domain.Business{{ID: "a"}}))
	require.NoError(t, reg.Append(ctx, "applebee's", domain.Header(), []domain.Business{{ID: "b"}}))
	require.NoError(t, reg.Close())

	assert.FileExists(t, filepath.Join(dir, "out-pizza.csv"))
	assert.FileExists(t, filepath.Join(dir, "out-applebee's.csv"))
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "ac_dc", fileSafe("ac/dc"))
	assert.Equal(t, "thai food", fileSafe("thai food"))
	assert.Equal(t, "a_b", fileSafe(`a\b`))
}

func TestSink_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s := New(Config{Dir: dir})

	st, err := s.Open(context.Background(), "pizza")
	require.NoError(t, err)
	assert.False(t, st.HasHeader())
	require.NoError(t, st.Close())
	assert.DirExists(t, dir)
}
