// Package trends extracts trending search keywords for a country and category
// by driving a headless browser against the trends page's own export feature.
// There is no public API for this data; everything below is UI choreography.
package trends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/glowmart/promogen/pkg/useragent"
)

const (
	baseURL = "https://trends.google.com/trending"

	// Fixed policy: one week of trends, top 10 labels. No configuration path
	// upstream, none here.
	lookbackDays = 7

	launchTimeout  = 60 * time.Second
	navTimeout     = 90 * time.Second
	exportTimeout  = 60 * time.Second
	consentTimeout = 5 * time.Second

	// The readiness events fire before the interactive controls exist, so a
	// settle delay follows navigation and each UI transition.
	renderSettleDelay  = 5 * time.Second
	consentSettleDelay = 1 * time.Second
	scrollSettleDelay  = 2 * time.Second
	menuOpenDelay      = 3 * time.Second
)

// Config assembles an Extractor.
type Config struct {
	// Channel selects the retrieval strategy. Defaults to clipboard.
	Channel Channel
	// Locales are the label sets to match against. Defaults to DefaultLocales.
	Locales []Labels
	// Headful opens a visible browser window for local debugging. The zero
	// value runs headless.
	Headful bool
	// UserAgents optionally overrides the navigation User-Agent pool.
	UserAgents *useragent.Pool
}

// Extractor pulls the trending keyword list for one country+category. Its
// Extract method is total: every failure mode collapses to an empty list so
// downstream stages run with degraded input instead of aborting.
type Extractor struct {
	channel Channel
	loc     *locator
	headful bool
	uas     *useragent.Pool
	log     *logrus.Entry
}

// NewExtractor builds an Extractor from cfg.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Channel == nil {
		cfg.Channel = NewClipboardChannel()
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	return &Extractor{
		channel: cfg.Channel,
		loc:     newLocator(cfg.Locales),
		headful: cfg.Headful,
		uas:     cfg.UserAgents,
		log:     logrus.WithField("component", "trends"),
	}
}

// PageURL builds the deterministic trends URL for a country and category.
func PageURL(countryCode, categoryID string) string {
	return fmt.Sprintf("%s?geo=%s&sort=search-volume&hours=%d&category=%s",
		baseURL, countryCode, lookbackDays*24, categoryID)
}

// Extract launches an isolated browser session, triggers the page's export
// feature through the configured channel, and parses the payload into at most
// 10 keywords. It never returns an error: all failures are logged and yield
// an empty list. The session is torn down on every exit path.
func (e *Extractor) Extract(ctx context.Context, countryCode, categoryID string) []string {
	log := e.log.WithFields(logrus.Fields{
		"country":  countryCode,
		"category": categoryID,
		"channel":  e.channel.Name(),
	})

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(e.uas.Random()),
	)
	if e.headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	// First Run starts the browser process. It must see the unbounded session
	// context: the allocator hands the first Run's ctx to the browser, so a
	// timeout here would tear the whole session down when it fires, killing
	// runs that are inside every per-step budget. A stuck launch is bounded
	// by cancelling the session from a timer instead.
	err := runBounded(launchTimeout, cancelTask, func() error {
		return chromedp.Run(taskCtx)
	})
	if err != nil {
		log.WithError(err).Warn("browser launch failed")
		return nil
	}

	url := PageURL(countryCode, categoryID)
	log.WithField("url", url).Info("fetching trends")

	if err := e.navigate(taskCtx, url); err != nil {
		log.WithError(err).Warn("navigation failed")
		return nil
	}

	e.dismissConsent(taskCtx)
	e.probeReadiness(taskCtx, log)

	if err := e.openExportMenu(taskCtx); err != nil {
		log.WithError(err).Warn("export control unavailable")
		return nil
	}

	raw, err := e.channel.Retrieve(taskCtx, e.loc)
	if err != nil {
		log.WithError(err).Warn("export retrieval failed")
		return nil
	}

	keywords := parseExport(raw, e.channel.Delimiter())
	if len(keywords) == 0 {
		log.Warn("export parsed to zero keywords")
		return nil
	}

	log.WithField("keywords", len(keywords)).Info("trends extracted")
	return keywords
}

// runBounded invokes run and fires cancel if it has not returned within d.
// The caller's context is left untouched on the happy path, so whatever run
// started keeps running after the bound elapses unexercised.
func runBounded(d time.Duration, cancel context.CancelFunc, run func() error) error {
	timer := time.AfterFunc(d, cancel)
	defer timer.Stop()
	return run()
}

func (e *Extractor) navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	// Navigate resolves on the load event. The page keeps background
	// connections open indefinitely, so anything like network-idle would
	// hang; the settle delay afterward covers client-side rendering.
	return chromedp.Run(nctx,
		chromedp.Navigate(url),
		chromedp.Sleep(renderSettleDelay),
	)
}

// dismissConsent clicks the cookie overlay if present. Absence is the common
// case and not an error.
func (e *Extractor) dismissConsent(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	err := chromedp.Run(cctx,
		chromedp.Click(e.loc.consentButton(), chromedp.BySearch),
		chromedp.Sleep(consentSettleDelay),
	)
	if err != nil {
		e.log.Debug("no consent overlay found, continuing")
	}
}

// probeReadiness snapshots the rendered document and checks that an export
// control exists, logging how far the page got. Diagnostic only; the real
// wait happens in openExportMenu.
func (e *Extractor) probeReadiness(ctx context.Context, log *logrus.Entry) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	found := false
	doc.Find("button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		for _, label := range e.loc.exportTexts() {
			if strings.Contains(text, label) {
				found = true
				return false
			}
		}
		return true
	})

	log.WithFields(logrus.Fields{
		"export_control": found,
		"rows":           doc.Find(`[role="row"]`).Length(),
	}).Debug("page readiness probe")
}

// openExportMenu scrolls to the top (the export control only exists in that
// scroll position) and clicks it, leaving the channel menu open.
func (e *Extractor) openExportMenu(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.Sleep(scrollSettleDelay),
	); err != nil {
		return fmt.Errorf("failed to scroll to top: %w", err)
	}

	ectx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	sel := e.loc.exportButton()
	err := chromedp.Run(ectx,
		chromedp.WaitVisible(sel, chromedp.BySearch),
		chromedp.Click(sel, chromedp.BySearch),
		chromedp.Sleep(menuOpenDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to open export menu: %w", err)
	}
	return nil
}
