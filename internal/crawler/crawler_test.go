package crawler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/digicord/internal/crawler"
	"github.com/moorebrett0/digicord/internal/species"
)

const listPage = `<html><body><table>
<thead><tr><th>#</th><th>Name</th><th>Stage</th></tr></thead>
<tbody>
<tr><td>1</td><td><img src="/img/sprite-1.png"><a href="/digimon/kuramon">Kuramon</a></td><td>Baby</td></tr>
<tr><td>2</td><td><img src="/img/sprite-2.png"><a href="/digimon/tsumemon">Tsumemon</a></td><td>In-Training</td></tr>
<tr><td>3</td><td><img src="/img/sprite-3.png"><a href="/digimon/missing">Missingmon</a></td><td>Rookie</td></tr>
</tbody></table></body></html>`

const kuramonPage = `<html><body>
<table><tr><td><img src="/img/field-1.png"></td></tr></table>
<table><tr><th>Digivolves From</th></tr><tr><td></td><td>N/A</td></tr></table>
<table>
<tr><th>Digivolves Into</th><th>Level</th></tr>
<tr><td>Tsumemon</td><td>Lv. 6</td></tr>
<tr><td>Pagumon</td><td><span class="icon">Level</span>Lv. 8</td></tr>
</table>
</body></html>`

const tsumemonPage = `<html><body>
<table><tr><td><img src="http://cdn.example/field-2.png"></td></tr></table>
<table><tr><th>Digivolves From</th></tr><tr><td><div>Kuramon</div></td><td><div>Yuramon</div></td></tr></table>
<table><tr><th>Digivolves Into</th></tr><tr><td></td><td>N/A</td></tr></table>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/digimon-list/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, listPage)
	})
	mux.HandleFunc("/digimon/kuramon", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, kuramonPage)
	})
	mux.HandleFunc("/digimon/tsumemon", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, tsumemonPage)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "PNG:"+r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawl(t *testing.T) {
	srv := newSite(t)

	c, err := crawler.New(crawler.Config{BaseURL: srv.URL + "/digimon-list/"})
	require.NoError(t, err)

	records, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2, "the species with a missing page is skipped")

	kuramon := records[0]
	assert.Equal(t, "Kuramon", kuramon.Name)
	assert.Equal(t, 1, kuramon.SpeciesNumber)
	assert.Equal(t, "Baby", kuramon.Stage)
	assert.Equal(t, srv.URL+"/img/sprite-1.png", kuramon.SpriteURL)
	assert.Equal(t, srv.URL+"/digimon/kuramon", kuramon.PageURL)
	assert.Equal(t, srv.URL+"/img/field-1.png", kuramon.FieldURL)
	assert.Empty(t, kuramon.Digivolutions.From)
	assert.Equal(t, []species.Digivolution{
		{Name: "Tsumemon", Level: "Lv. 6"},
		{Name: "Pagumon", Level: "Lv. 8"},
	}, kuramon.Digivolutions.To)

	tsumemon := records[1]
	assert.Equal(t, "In-Training", tsumemon.Stage)
	assert.Equal(t, "http://cdn.example/field-2.png", tsumemon.FieldURL)
	assert.Equal(t, []string{"Kuramon", "Yuramon"}, tsumemon.Digivolutions.From)
	assert.Empty(t, tsumemon.Digivolutions.To)

	// The crawled records form a valid catalog.
	cat, err := species.New(records)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
}

func TestCrawlListPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, err := crawler.New(crawler.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Crawl(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestParseListRejectsBadNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<table><tbody><tr><td>one</td><td><a href="/x">X</a></td><td>Baby</td></tr></tbody></table>`)
	}))
	t.Cleanup(srv.Close)

	c, err := crawler.New(crawler.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Crawl(context.Background())
	require.ErrorContains(t, err, "species number")
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := crawler.New(crawler.Config{})
	require.Error(t, err)
}

func TestSaveDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "database.json")
	records := []species.Record{
		{Name: "Kuramon", SpeciesNumber: 1, Stage: "Baby", Digivolutions: species.Digivolutions{
			From: []string{},
			To:   []species.Digivolution{{Name: "Tsumemon", Level: "Lv. 6"}},
		}},
	}

	require.NoError(t, crawler.SaveDatabase(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n    {\n        \"name\": \"Kuramon\""))

	var back []species.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, records, back)

	cat, err := species.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDownloadAll(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()

	// An existing file is replaced.
	old := species.SpritePath(dir, 1)
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))

	records := []species.Record{
		{Name: "Kuramon", SpeciesNumber: 1, Stage: "Baby",
			SpriteURL: srv.URL + "/img/sprite-1.png", FieldURL: srv.URL + "/img/field-1.png"},
		{Name: "Tsumemon", SpeciesNumber: 2, Stage: "In-Training",
			SpriteURL: srv.URL + "/nope.png", FieldURL: ""},
	}

	d := crawler.NewDownloader(dir, crawler.Config{})
	res, err := d.DownloadAll(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, crawler.DownloadResult{Downloaded: 2, Failed: 1, Skipped: 1}, res)

	sprite, err := os.ReadFile(species.SpritePath(dir, 1))
	require.NoError(t, err)
	assert.Equal(t, "PNG:/img/sprite-1.png", string(sprite))

	field, err := os.ReadFile(filepath.Join(dir, "field", "field-001.png"))
	require.NoError(t, err)
	assert.Equal(t, "PNG:/img/field-1.png", string(field))

	_, err = os.Stat(species.SpritePath(dir, 2))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadAllStopsOnCancel(t *testing.T) {
	srv := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := crawler.NewDownloader(t.TempDir(), crawler.Config{})
	_, err := d.DownloadAll(ctx, []species.Record{
		{Name: "Kuramon", SpeciesNumber: 1, Stage: "Baby", SpriteURL: srv.URL + "/img/a.png"},
	})
	require.ErrorIs(t, err, context.Canceled)
}
