// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package playstore resolves installer names and checks store listings.
package playstore

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/janderssonse/applist/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// GooglePlayInstaller is the only installer whose listings can be checked.
const GooglePlayInstaller = "com.android.vending"

const (
	// DefaultBaseURL is the public Play Store host.
	DefaultBaseURL = "https://play.google.com"

	// DefaultTimeout bounds one listing request, retries included.
	DefaultTimeout = 10 * time.Second

	// DefaultRequestsPerSecond throttles listing requests.
	DefaultRequestsPerSecond = 5.0

	detailsPath = "/store/apps/details"
	userAgent   = "applist/1.0"
)

// UnknownInstaller is shown when no installer is recorded.
const UnknownInstaller = "Unknown"

//nolint:gochecknoglobals // fixed lookup table
var installerNames = map[string]string{
	"com.amazon.venezia":                  "Amazon Appstore",
	"com.google.android.packageinstaller": "APK",
	"cm.aptoide.pt":                       "Aptoide",
	"org.fdroid.fdroid":                   "F-Droid",
	"net.rim.bb.appworld":                 "Blackberry World",
	"com.farsitel.bazaar":                 "Cafe Bazaar",
	"com.sec.android.app.samsungapps":     "Galaxy Store",
	GooglePlayInstaller:                   "Google Play",
	"com.huawei.appmarket":                "Huawei App Gallery",
	"com.xiaomi.market":                   "Mi Store",
	"com.oneplus.backuprestore":           "OnePlus Clone Phone",
	"com.sec.android.easyMover":           "Samsung Smart Switch",
	"com.slideme.sam.manager":             "SlideME Marketplace",
	"com.tencent.android.qqdownloader":    "Tencent Appstore",
	"com.yandex.store":                    "Yandex Appstore",
	"com.aurora.store":                    "Aurora Store",
	"com.qooapp":                          "QooApp",
	"com.qooapp.qoohelper":                "QooApp",
	"com.taptap":                          "TapTap",
	"com.taptap.global":                   "TapTap",
	"com.apkpure.aegon":                   "APKPure",
	"com.uptodown.android.marketplace":    "Uptodown",
	"com.heytap.market":                   "HeyTap",
	"com.oppo.market":                     "OPPO App Market",
	"com.vivo.appstore":                   "Vivo App Store",
	"com.looker.droidify":                 "Droid-ify",
	"com.machaiv3lli.fdroid":              "Neo Store",
}

// Options configures the store client.
type Options struct {
	Enabled           bool
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// DefaultOptions returns options for the public Play Store.
func DefaultOptions() Options {
	return Options{
		Enabled:           true,
		BaseURL:           DefaultBaseURL,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		MaxRetries:        2,
	}
}

// Client implements domain.StoreSource against the Play Store web listing.
type Client struct {
	opts    Options
	resty   *resty.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger

	flight singleflight.Group

	mu    sync.Mutex
	known map[string]bool
}

// New creates a store client. A zero BaseURL or Timeout uses the defaults.
func New(opts Options, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	restyClient.SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		opts:    opts,
		resty:   restyClient,
		limiter: limiter,
		metrics: m,
		logger:  logger,
		known:   make(map[string]bool),
	}
}

// InstallerDisplayName maps an installer package to a storefront name.
func (c *Client) InstallerDisplayName(installer string) string {
	if installer == "" {
		return UnknownInstaller
	}

	if name, ok := installerNames[installer]; ok {
		return name
	}

	return UnknownInstaller + " (" + installer + ")"
}

// StoreLink returns the public listing URL of pkg.
func (c *Client) StoreLink(pkg string) string {
	return DefaultBaseURL + detailsPath + "?id=" + url.QueryEscape(pkg)
}

// ExistsInStore reports whether pkg still has a Play Store listing. It is
// nil for other installers, when checks are disabled, or when the request
// could not complete. Only definitive answers are cached.
func (c *Client) ExistsInStore(ctx context.Context, pkg, installer string) *bool {
	if installer != GooglePlayInstaller || !c.opts.Enabled {
		c.metrics.StoreChecked(metrics.StoreSkipped)
		return nil
	}

	c.mu.Lock()
	found, ok := c.known[pkg]
	c.mu.Unlock()

	if ok {
		c.metrics.StoreChecked(metrics.StoreCacheHit)
		return &found
	}

	v, err, _ := c.flight.Do(pkg, func() (interface{}, error) {
		return c.check(ctx, pkg)
	})
	if err != nil {
		c.metrics.StoreChecked(metrics.StoreUnknown)
		c.logger.Debug("store check failed", zap.String("package", pkg), zap.Error(err))

		return nil
	}

	exists, _ := v.(bool)
	if exists {
		c.metrics.StoreChecked(metrics.StoreFound)
	} else {
		c.metrics.StoreChecked(metrics.StoreMissing)
	}

	return &exists
}

func (c *Client) check(ctx context.Context, pkg string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("id", pkg).
		SetDoNotParseResponse(true).
		Get(detailsPath)
	if err != nil {
		return false, err
	}

	if body := resp.RawBody(); body != nil {
		_ = body.Close()
	}

	exists := resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices

	c.mu.Lock()
	c.known[pkg] = exists
	c.mu.Unlock()

	return exists, nil
}
