// Package insideairbnb acquires a market's listings, calendar and reviews
// snapshots from insideairbnb.com.
package insideairbnb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"

	"airbnb-vacancy/config"
	"airbnb-vacancy/storage"
	"airbnb-vacancy/utils"
)

const getTheDataURL = "https://insideairbnb.com/get-the-data/"

// DatasetURLs are the download locations of one market snapshot.
type DatasetURLs struct {
	Listings string
	Calendar string
	Reviews  string
}

func (u DatasetURLs) byFile() map[string]string {
	return map[string]string{
		storage.ListingsFile: u.Listings,
		storage.CalendarFile: u.Calendar,
		storage.ReviewsFile:  u.Reviews,
	}
}

// Scraper discovers and downloads market snapshots.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
	client *http.Client
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Fetch makes sure dir holds the three tables of market, downloading the
// latest snapshot when any of them is missing.
func (s *Scraper) Fetch(ctx context.Context, market, dir string) error {
	if HasDataset(dir) {
		s.logger.Info("[insideairbnb] Dataset for %q already present in %s", market, dir)
		return nil
	}

	urls, err := s.Discover(ctx, market)
	if err != nil {
		return err
	}
	return s.Download(ctx, urls, dir)
}

// HasDataset reports whether dir contains all three tables, plain or gzipped.
func HasDataset(dir string) bool {
	for _, name := range []string{storage.ListingsFile, storage.CalendarFile, storage.ReviewsFile} {
		if !exists(filepath.Join(dir, name)) && !exists(filepath.Join(dir, name+".gz")) {
			return false
		}
	}
	return true
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Discover renders the get-the-data page and picks the newest snapshot
// links for market.
func (s *Scraper) Discover(ctx context.Context, market string) (DatasetURLs, error) {
	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[insideairbnb] Discovering dataset links for %q (browser: %s)", market, chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var links []string
	err := s.retry.Do(ctx, "discover-datasets", func() error {
		browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancel()

		browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 90*time.Second)
		defer cancelTimeout()

		var found []string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(getTheDataURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(`
				Array.from(document.querySelectorAll('a[href$=".csv.gz"]'))
					.map(function(a) { return a.href; })
			`, &found),
		)
		if err != nil {
			return fmt.Errorf("chromedp evaluate: %w", err)
		}
		if len(found) == 0 {
			return errors.New("no dataset links on page")
		}
		links = found
		return nil
	})
	if err != nil {
		return DatasetURLs{}, fmt.Errorf("insideairbnb: discover %q: %w", market, err)
	}

	s.logger.Debug("[insideairbnb] Page lists %d dataset links", len(links))
	return SelectDatasetURLs(links, config.MarketSlug(market))
}

// SelectDatasetURLs picks the newest listings/calendar/reviews links whose
// path contains the market slug as a segment. Missing calendar or reviews
// links are derived from the listings link.
func SelectDatasetURLs(links []string, slug string) (DatasetURLs, error) {
	var candidates []string
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if hasSegment(u.Path, slug) && path.Base(u.Path) == storage.ListingsFile+".gz" && strings.Contains(u.Path, "/data/") {
			candidates = append(candidates, link)
		}
	}
	if len(candidates) == 0 {
		return DatasetURLs{}, fmt.Errorf("insideairbnb: no listings snapshot for market %q", slug)
	}

	// Snapshot directories are ISO dates, so the lexically greatest is newest.
	sort.Strings(candidates)
	listings := candidates[len(candidates)-1]

	return DatasetURLs{
		Listings: listings,
		Calendar: deriveURL(listings, "calendar"),
		Reviews:  deriveURL(listings, "reviews"),
	}, nil
}

func hasSegment(p, segment string) bool {
	for _, s := range strings.Split(p, "/") {
		if s == segment {
			return true
		}
	}
	return false
}

// deriveURL swaps the listings file name for another table of the same
// snapshot.
func deriveURL(listingsURL, table string) string {
	i := strings.LastIndex(listingsURL, "listings")
	if i < 0 {
		return ""
	}
	return listingsURL[:i] + table + listingsURL[i+len("listings"):]
}

// Download fetches the three tables into dir concurrently. Tables already
// on disk are skipped.
func (s *Scraper) Download(ctx context.Context, urls DatasetURLs, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("insideairbnb: create %q: %w", dir, err)
	}

	errs := make(chan error, 3)
	for name, src := range urls.byFile() {
		name, src := name, src
		dest := filepath.Join(dir, name+".gz")
		if exists(dest) || exists(filepath.Join(dir, name)) {
			s.logger.Debug("[insideairbnb] %s already downloaded", name)
			continue
		}
		s.pool.Submit(func() {
			err := s.retry.Do(ctx, "download-"+name, func() error {
				return s.downloadFile(ctx, src, dest)
			})
			if err != nil {
				errs <- err
			}
		})
	}
	s.pool.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	if len(all) > 0 {
		return fmt.Errorf("insideairbnb: download: %w", errors.Join(all...))
	}
	s.logger.Info("[insideairbnb] Dataset stored in %s", dir)
	return nil
}

func (s *Scraper) downloadFile(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", src, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	s.logger.Debug("[insideairbnb] Downloaded %s (%s)", filepath.Base(dest), humanize.Bytes(uint64(n)))
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
