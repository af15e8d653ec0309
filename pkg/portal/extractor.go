// Package portal extracts listing data from Chilean property portal
// pages with a headless browser. Portals render listing details
// client-side, so plain HTTP fetches return empty shells.
package portal

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// RawListing is the extracted listing exactly as displayed: every field
// is a display string in whatever format the portal uses. Callers parse.
type RawListing struct {
	Title       string            `json:"title"`
	Price       string            `json:"price"`
	Address     string            `json:"address"`
	Bedrooms    string            `json:"bedrooms"`
	Bathrooms   string            `json:"bathrooms"`
	AreaM2      string            `json:"area_m2"`
	Description string            `json:"description"`
	Features    map[string]string `json:"features,omitempty"`
	URL         string            `json:"url"`
}

// Extractor fetches listing pages.
type Extractor struct {
	timeout  time.Duration
	headless bool
	execPath string
}

// Option configures the extractor.
type Option func(*Extractor)

// WithTimeout bounds one page extraction. Default 90s.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithHeadless toggles headless mode. Default true.
func WithHeadless(headless bool) Option {
	return func(e *Extractor) { e.headless = headless }
}

// WithExecPath sets the browser binary explicitly.
func WithExecPath(path string) Option {
	return func(e *Extractor) { e.execPath = path }
}

// New creates an extractor. The browser binary is located via CHROME_BIN
// or well-known paths unless WithExecPath overrides it.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		timeout:  90 * time.Second,
		headless: true,
		execPath: findChromeBinary(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch loads one listing page and extracts its displayed fields.
func (e *Extractor) Fetch(ctx context.Context, listingURL string) (*RawListing, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancelTimeout := context.WithTimeout(browserCtx, e.timeout)
	defer cancelTimeout()

	var data struct {
		Title       string            `json:"title"`
		Price       string            `json:"price"`
		Address     string            `json:"address"`
		Bedrooms    string            `json:"bedrooms"`
		Bathrooms   string            `json:"bathrooms"`
		AreaM2      string            `json:"area_m2"`
		Description string            `json:"description"`
		Features    map[string]string `json:"features"`
	}

	err := chromedp.Run(runCtx,
		chromedp.Navigate(listingURL),
		chromedp.Sleep(4*time.Second),
		chromedp.Evaluate(extractScript, &data),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "portal: extract %s", listingURL)
	}
	if data.Title == "" && data.Price == "" {
		return nil, eris.Errorf("portal: page yielded no listing data: %s", listingURL)
	}

	return &RawListing{
		Title:       data.Title,
		Price:       data.Price,
		Address:     data.Address,
		Bedrooms:    data.Bedrooms,
		Bathrooms:   data.Bathrooms,
		AreaM2:      data.AreaM2,
		Description: data.Description,
		Features:    data.Features,
		URL:         listingURL,
	}, nil
}

// extractScript pulls the listing fields from the rendered page. Selector
// lists cover the main Chilean portals; label matching covers the rest.
const extractScript = `
(function() {
	var result = {
		title: '', price: '', address: '', bedrooms: '',
		bathrooms: '', area_m2: '', description: '', features: {}
	};

	var titleEl = document.querySelector('h1.ui-pdp-title') ||
	              document.querySelector('h1[class*="title"]') ||
	              document.querySelector('h1');
	if (titleEl) result.title = titleEl.innerText.trim();

	var priceEl = document.querySelector('.ui-pdp-price__second-line .andes-money-amount__fraction') ||
	              document.querySelector('[class*="price"] [class*="fraction"]') ||
	              document.querySelector('[itemprop="price"]') ||
	              document.querySelector('span[class*="price"]');
	if (priceEl) {
		var symbolEl = priceEl.closest('[class*="price"]');
		var symbol = symbolEl ? (symbolEl.innerText.match(/UF|U\.F\.|CLP|\$/) || [''])[0] : '';
		result.price = (symbol + ' ' + priceEl.innerText).trim();
	}

	var addrEl = document.querySelector('.ui-pdp-media__title') ||
	             document.querySelector('[class*="location"] [class*="address"]') ||
	             document.querySelector('[itemprop="address"]');
	if (addrEl) result.address = addrEl.innerText.trim();

	// Spec rows: "Dormitorios: 2", "Baños: 2", "Superficie total: 78 m2"
	var rows = document.querySelectorAll('tr, .ui-pdp-specs__table-row, [class*="spec"] li');
	for (var i = 0; i < rows.length; i++) {
		var text = rows[i].innerText || '';
		var lower = text.toLowerCase();
		var value = text.split(/[:\n]/).pop().trim();
		if (lower.indexOf('dormitorio') >= 0 && !result.bedrooms) result.bedrooms = value;
		else if (lower.indexOf('baño') >= 0 && !result.bathrooms) result.bathrooms = value;
		else if (lower.indexOf('superficie') >= 0 && !result.area_m2) result.area_m2 = value;
		else if (text.indexOf(':') >= 0) {
			var key = text.split(/[:\n]/)[0].trim().toLowerCase();
			if (key && key.length < 40) result.features[key] = value;
		}
	}

	var descEl = document.querySelector('.ui-pdp-description__content') ||
	             document.querySelector('[class*="description"]');
	if (descEl) result.description = descEl.innerText.trim().substring(0, 2000);

	return result;
})()
`

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
