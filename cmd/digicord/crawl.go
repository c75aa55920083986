package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/digicord/internal/config"
	"github.com/moorebrett0/digicord/internal/crawler"
	"github.com/moorebrett0/digicord/internal/species"
)

var crawlOut string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Scrape the species list and write the species database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c, err := crawler.New(crawlerConfig(cfg.Crawler))
		if err != nil {
			return err
		}
		records, err := c.Crawl(ctx)
		if err != nil {
			return err
		}

		out := crawlOut
		if out == "" {
			out = cfg.Catalog.Path
		}
		if err := crawler.SaveDatabase(out, records); err != nil {
			return err
		}
		fmt.Printf("Wrote %d species to %s\n", len(records), out)
		return nil
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Download sprites and field images for every species in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		catalog, err := species.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		d := crawler.NewDownloader(cfg.Catalog.ImagesDir, crawlerConfig(cfg.Crawler))
		res, err := d.DownloadAll(ctx, catalog.Records())
		fmt.Printf("Downloaded: %d, Failed: %d, Skipped: %d\n", res.Downloaded, res.Failed, res.Skipped)
		return err
	},
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlOut, "out", "o", "", "output file (defaults to catalog.path)")
}

func crawlerConfig(cc config.CrawlerConfig) crawler.Config {
	return crawler.Config{
		BaseURL:    cc.BaseURL,
		Courtesy:   cc.Courtesy,
		UserAgent:  cc.UserAgent,
		HTTPClient: &http.Client{Timeout: cc.Timeout},
	}
}
