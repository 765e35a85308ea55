package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/config"
	"github.com/kitbuilder587/yelp-sweep/internal/search"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Yelp:   config.YelpConfig{APIKey: "key", BaseURL: baseURL, Timeout: 5 * time.Second},
		Search: config.SearchConfig{Limit: 2, Ceiling: 1000, MaxDepth: 10},
		Sink:   config.SinkConfig{Type: config.SinkFile, Dir: t.TempDir(), Prefix: "out-"},
		Log:    config.LogConfig{Level: "error"},
	}
}

func writeRegions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantLimit int
		wantSink  string
		wantDir   string
		wantErr   error
	}{
		{
			name:      "defaults from config",
			args:      nil,
			wantLimit: 20,
			wantSink:  config.SinkFile,
			wantDir:   ".",
		},
		{
			name:      "flags override",
			args:      []string{"--limit", "50", "--out-dir", "/tmp/out"},
			wantLimit: 50,
			wantSink:  config.SinkFile,
			wantDir:   "/tmp/out",
		},
		{
			name:    "limit one rejected",
			args:    []string{"--limit", "1"},
			wantErr: config.ErrInvalidLimit,
		},
		{
			name:    "postgres without database",
			args:    []string{"--sink", "postgres"},
			wantErr: config.ErrMissingDB,
		},
		{
			name:    "unknown sink",
			args:    []string{"--sink", "s3"},
			wantErr: config.ErrInvalidSink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Yelp:   config.YelpConfig{APIKey: "key", BaseURL: "http://localhost:8080/v2"},
				Search: config.SearchConfig{Limit: 20, Ceiling: 1000, MaxDepth: 10},
				Sink:   config.SinkConfig{Type: config.SinkFile, Dir: "."},
			}
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			opts := &options{}
			opts.limit, _ = cmd.Flags().GetInt("limit")
			opts.sink, _ = cmd.Flags().GetString("sink")
			opts.outDir, _ = cmd.Flags().GetString("out-dir")

			err := applyFlags(cmd, cfg, opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, cfg.Search.Limit)
			assert.Equal(t, tt.wantLimit, opts.limit)
			assert.Equal(t, tt.wantSink, cfg.Sink.Type)
			assert.Equal(t, tt.wantDir, cfg.Sink.Dir)
		})
	}
}

func TestRootCmd_Defaults(t *testing.T) {
	cmd := newRootCmd()
	flags := cmd.Flags()

	term, _ := flags.GetString("term")
	file, _ := flags.GetString("file")
	offset, _ := flags.GetInt("offset")

	assert.Equal(t, "dinner", term)
	assert.Equal(t, "file.csv", file)
	assert.Equal(t, 0, offset)
}

func TestRun_FileSink(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var ids []string
		switch offset {
		case 0:
			ids = []string{"A", "B"}
		case 1:
			ids = []string{"C"}
		}

		businesses := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			businesses = append(businesses, map[string]interface{}{
				"id":           id,
				"name":         "Business " + id,
				"rating":       4,
				"review_count": 7,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"total": 3, "businesses": businesses})
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	opts := &options{
		term:  "pizza",
		limit: 2,
		file:  writeRegions(t, "geoid;minlat;maxlat;minlon;maxlon\ng1;10;11;-10;-9\n"),
	}

	err := run(context.Background(), cfg, opts, zap.NewNop(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Sink.Dir, "out-pizza.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "business_id|name|rating|review_count|"))
	assert.True(t, strings.HasPrefix(lines[1], "A|Business A|"))
	assert.True(t, strings.HasPrefix(lines[2], "B|Business B|"))
	assert.True(t, strings.HasPrefix(lines[3], "C|Business C|"))

	require.Len(t, gotAuth, 2)
	assert.Equal(t, "Bearer key", gotAuth[0])
}

func TestRun_TransportErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"TOKEN_INVALID"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	opts := &options{
		term:  "pizza",
		limit: 2,
		file:  writeRegions(t, "geoid;minlat;maxlat;minlon;maxlon\ng1;10;11;-10;-9\n"),
	}

	err := run(context.Background(), cfg, opts, zap.NewNop(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrTransport)

	_, statErr := os.Stat(filepath.Join(cfg.Sink.Dir, "out-pizza.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingRegionsFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	opts := &options{term: "pizza", limit: 2, file: filepath.Join(t.TempDir(), "nope.csv")}

	err := run(context.Background(), cfg, opts, zap.NewNop(), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
