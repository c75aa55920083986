// Package crawler builds the species database by scraping the digimon list
// site, and downloads the sprite and field images the bot attaches to
// its embeds.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/moorebrett0/digicord/internal/species"
)

// emptyCell marks a digivolution table with nothing in it.
const emptyCell = "N/A"

// Config configures a Crawler or Downloader.
type Config struct {
	BaseURL    string
	Courtesy   time.Duration // minimum gap between requests
	UserAgent  string
	HTTPClient *http.Client // defaults to a client with a 30s timeout
}

// Crawler scrapes the list page and every species page it links to.
type Crawler struct {
	base    *url.URL
	fetcher *fetcher
}

// New creates a Crawler.
func New(cfg Config) (*Crawler, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("crawler: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("crawler: parse base url: %w", err)
	}
	return &Crawler{base: base, fetcher: newFetcher(cfg)}, nil
}

// Crawl fetches the list page and then each species page. A failing list
// page aborts; a failing species page is logged and that species skipped.
func (c *Crawler) Crawl(ctx context.Context) ([]species.Record, error) {
	slog.Info("crawler: starting", "url", c.base.String())

	doc, err := c.fetcher.document(ctx, c.base.String())
	if err != nil {
		return nil, fmt.Errorf("crawler: list page: %w", err)
	}

	rows, err := ParseList(doc, c.base)
	if err != nil {
		return nil, err
	}

	records := make([]species.Record, 0, len(rows))
	for _, rec := range rows {
		page, err := c.fetcher.document(ctx, rec.PageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("crawler: species page failed", "name", rec.Name, "url", rec.PageURL, "err", err)
			continue
		}

		pageURL, _ := url.Parse(rec.PageURL)
		field, digivolutions, err := ParseSpeciesPage(page, pageURL)
		if err != nil {
			slog.Error("crawler: species page unparseable", "name", rec.Name, "url", rec.PageURL, "err", err)
			continue
		}
		rec.FieldURL = field
		rec.Digivolutions = digivolutions
		records = append(records, rec)

		slog.Debug("crawler: parsed species", "number", rec.SpeciesNumber, "name", rec.Name)
	}

	slog.Info("crawler: done", "species", len(records), "skipped", len(rows)-len(records))
	return records, nil
}

// ParseList reads the rows of the list page table: number, name cell with
// the page link and sprite, and stage. Relative links resolve against base.
func ParseList(doc *goquery.Document, base *url.URL) ([]species.Record, error) {
	var (
		records []species.Record
		errs    []error
	)

	doc.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			errs = append(errs, fmt.Errorf("row %d: want 3 cells, got %d", i, cells.Length()))
			return
		}

		number, err := strconv.Atoi(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: species number: %w", i, err))
			return
		}

		nameCell := cells.Eq(1)
		link := nameCell.Find("a").First()
		href, _ := link.Attr("href")
		sprite, _ := nameCell.Find("img").First().Attr("src")

		records = append(records, species.Record{
			Name:          strings.TrimSpace(link.Text()),
			SpeciesNumber: number,
			Stage:         strings.TrimSpace(cells.Eq(2).Text()),
			SpriteURL:     resolve(base, sprite),
			PageURL:       resolve(base, href),
		})
	})

	if len(errs) > 0 {
		return nil, fmt.Errorf("crawler: list page: %w", errors.Join(errs...))
	}
	if len(records) == 0 {
		return nil, errors.New("crawler: list page has no rows")
	}
	return records, nil
}

// ParseSpeciesPage extracts the field image (first image of the first
// table) and the digivolution tables (second and third tables).
func ParseSpeciesPage(doc *goquery.Document, base *url.URL) (string, species.Digivolutions, error) {
	tables := doc.Find("table")
	if tables.Length() < 3 {
		return "", species.Digivolutions{}, fmt.Errorf("want at least 3 tables, got %d", tables.Length())
	}

	field, ok := tables.Eq(0).Find("img").First().Attr("src")
	if !ok {
		return "", species.Digivolutions{}, errors.New("no field image")
	}

	d := species.Digivolutions{
		From: parseFrom(tables.Eq(1)),
		To:   parseTo(tables.Eq(2)),
	}
	return resolve(base, field), d, nil
}

func parseFrom(table *goquery.Selection) []string {
	from := []string{}
	if isEmptyTable(table) {
		return from
	}
	table.Find("div").Each(func(_ int, div *goquery.Selection) {
		from = append(from, strings.TrimSpace(div.Text()))
	})
	return from
}

func parseTo(table *goquery.Selection) []species.Digivolution {
	to := []species.Digivolution{}
	if isEmptyTable(table) {
		return to
	}
	// Skip the title row.
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		to = append(to, species.Digivolution{
			Name:  strings.TrimSpace(cells.Eq(0).Text()),
			Level: levelText(cells.Eq(1)),
		})
	})
	return to
}

// levelText reads the level from the cell's second node, which follows the
// level icon. Cells without an icon fall back to their full text.
func levelText(cell *goquery.Selection) string {
	nodes := cell.Contents()
	if nodes.Length() < 2 {
		return strings.TrimSpace(cell.Text())
	}
	return strings.TrimSpace(nodes.Eq(1).Text())
}

func isEmptyTable(table *goquery.Selection) bool {
	cells := table.Find("td")
	if cells.Length() < 2 {
		return true
	}
	return strings.TrimSpace(cells.Eq(1).Text()) == emptyCell
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// fetcher performs rate limited GETs.
type fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newFetcher(cfg Config) *fetcher {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if cfg.Courtesy > 0 {
		limit = rate.Every(cfg.Courtesy)
	}
	return &fetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
	}
}

// get waits for the limiter and returns the response of a 200 GET. The
// caller closes the body.
func (f *fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	slog.Debug("crawler: GET", "url", rawURL)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

func (f *fetcher) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}
