package trends

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Channel is one retrieval mechanism for the page's exported table. The two
// implementations (clipboard, file download) are interchangeable strategies
// selected at extractor construction; both are invoked with the export menu
// already open.
type Channel interface {
	Name() string
	// Delimiter is the field separator of the payload this channel yields.
	Delimiter() rune
	// Retrieve clicks this channel's menu entry and returns the raw export
	// text. ctx is the live browser context.
	Retrieve(ctx context.Context, loc *locator) (string, error)
}

const (
	menuEntryTimeout = 30 * time.Second
	copySettleDelay  = 2 * time.Second
)

// clipboardChannel drives the "copy to clipboard" menu entry and reads the
// result back through the page's own clipboard API. Payload is tab-separated.
type clipboardChannel struct{}

// NewClipboardChannel returns the clipboard retrieval strategy.
func NewClipboardChannel() Channel { return clipboardChannel{} }

func (clipboardChannel) Name() string    { return "clipboard" }
func (clipboardChannel) Delimiter() rune { return '\t' }

func (clipboardChannel) Retrieve(ctx context.Context, loc *locator) (string, error) {
	// Reading the clipboard from page JS needs an explicit grant; headless
	// sessions have no permission prompt to approve.
	err := chromedp.Run(ctx, browser.GrantPermissions([]browser.PermissionType{
		browser.PermissionTypeClipboardReadWrite,
		browser.PermissionTypeClipboardSanitizedWrite,
	}))
	if err != nil {
		return "", fmt.Errorf("failed to grant clipboard permissions: %w", err)
	}

	if err := clickMenuEntry(ctx, loc.copyMenuItem()); err != nil {
		return "", err
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(copySettleDelay)); err != nil {
		return "", err
	}

	var text string
	err = chromedp.Run(ctx, chromedp.Evaluate(
		`navigator.clipboard.readText()`,
		&text,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

// downloadChannel drives the "download CSV" menu entry, waits for the browser
// download to complete, and reads the file back. Payload is comma-separated
// with quoted-field escaping. The file lands in a per-invocation temp dir
// that is removed on every exit path.
type downloadChannel struct {
	timeout time.Duration
}

// NewDownloadChannel returns the file-download retrieval strategy.
func NewDownloadChannel() Channel {
	return downloadChannel{timeout: menuEntryTimeout}
}

func (downloadChannel) Name() string    { return "download" }
func (downloadChannel) Delimiter() rune { return ',' }

func (d downloadChannel) Retrieve(ctx context.Context, loc *locator) (string, error) {
	dir, err := os.MkdirTemp("", "promogen-trends-*")
	if err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// Register for completion events before the click so a fast download
	// cannot slip past us. AllowAndName stores the file under its GUID.
	done := make(chan string, 1)
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chromedp.ListenTarget(lctx, func(ev interface{}) {
		if p, ok := ev.(*browser.EventDownloadProgress); ok &&
			p.State == browser.DownloadProgressStateCompleted {
			select {
			case done <- p.GUID:
			default:
			}
		}
	})

	err = chromedp.Run(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	)
	if err != nil {
		return "", fmt.Errorf("failed to set download behavior: %w", err)
	}

	if err := clickMenuEntry(ctx, loc.downloadMenuItem()); err != nil {
		return "", err
	}

	select {
	case guid := <-done:
		data, err := os.ReadFile(filepath.Join(dir, guid))
		if err != nil {
			return "", fmt.Errorf("failed to read downloaded export: %w", err)
		}
		return string(data), nil
	case <-time.After(d.timeout):
		return "", fmt.Errorf("download did not complete within %s", d.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// clickMenuEntry waits for the menu entry to be attached and clicks it via
// page JS. The export menu overlays frequently fail strict interactability
// checks, so the click is forced rather than simulated through input events.
func clickMenuEntry(ctx context.Context, xpath string) error {
	wctx, cancel := context.WithTimeout(ctx, menuEntryTimeout)
	defer cancel()

	if err := chromedp.Run(wctx, chromedp.WaitReady(xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("menu entry not found: %w", err)
	}

	var clicked bool
	js := fmt.Sprintf(`(function() {
		const r = document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		if (r.snapshotLength === 0) return false;
		r.snapshotItem(r.snapshotLength - 1).click();
		return true;
	})()`, xpath)

	if err := chromedp.Run(wctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("failed to click menu entry: %w", err)
	}
	if !clicked {
		return fmt.Errorf("menu entry vanished before click")
	}
	return nil
}
