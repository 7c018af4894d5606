package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/config"
	"github.com/nicx17/hytrack/internal/model"
	"github.com/nicx17/hytrack/internal/util"
)

var (
	// ErrUnavailable marks transport-level failures: the tracking page could
	// not be fetched this run.
	ErrUnavailable = errors.New("tracking page unavailable")

	// ErrBadMarkup marks structural failures: the page came back without the
	// expected scan table. The site layout may have changed.
	ErrBadMarkup = errors.New("unexpected tracking page markup")
)

// BlueDart scrapes the Blue Dart third-party tracking page for the most
// recent scan event of a waybill. The page is the carrier's own HTML, so
// every parse assumption lives here and nowhere else.
type BlueDart struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
}

func NewBlueDart(cfg config.Lookup, log zerolog.Logger) *BlueDart {
	return &BlueDart{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    util.NewHTTPClient(cfg.Timeout),
		log:       log.With().Str("component", "lookup").Logger(),
	}
}

// TrackingURL returns the public tracking page for one waybill. Notification
// bodies embed the same link.
func TrackingURL(baseURL, waybill string) string {
	return strings.TrimRight(baseURL, "/") + "/trackdartresultthirdparty?trackFor=0&trackNo=" + url.QueryEscape(waybill)
}

// Latest fetches and parses the newest scan row for waybill. The first row
// of the SCAN table is the most recent event.
func (b *BlueDart) Latest(ctx context.Context, waybill string) (model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, TrackingURL(b.baseURL, waybill), nil)
	if err != nil {
		return model.Event{}, err
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return model.Event{}, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrBadMarkup, err)
	}
	cells := doc.Find("#SCAN" + waybill + " table tbody tr").First().Find("td")
	if cells.Length() < 4 {
		return model.Event{}, fmt.Errorf("%w: no scan rows for %s", ErrBadMarkup, waybill)
	}
	text := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }
	return model.Event{
		Location: text(0),
		Details:  text(1),
		Date:     text(2),
		Time:     text(3),
	}, nil
}
