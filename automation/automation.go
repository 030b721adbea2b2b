package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"salesboard/config"
)

// ErrNoBrowser is returned when no Chromium binary is configured or installed.
var ErrNoBrowser = errors.New("no Chromium or Chrome browser found, set chromePath or SALESBOARD_CHROME_PATH")

const DefaultPrintTimeout = 60 * time.Second

type PrintOptions struct {
	// ChromePath overrides the browser lookup.
	ChromePath string
	Timeout    time.Duration
}

// PrintPDF loads an HTML document into a headless browser and prints it.
func PrintPDF(ctx context.Context, htmlDoc string, opts PrintOptions) ([]byte, error) {
	log := config.GetLogger().WithField("module", "automation")

	bin := opts.ChromePath
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return nil, ErrNoBrowser
		}
		bin = found
	} else if _, err := os.Stat(bin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBrowser, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultPrintTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Leakless(false) keeps antivirus software from blocking the helper binary.
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		Leakless(false)
	defer l.Cleanup()

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser %s: %w", bin, err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(htmlDoc); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF stream: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("browser returned an empty PDF")
	}
	log.WithField("bytes", len(data)).Info("report printed to PDF")
	return data, nil
}
