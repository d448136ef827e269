package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-radar-loop/internal/radar"
)

// DefaultURLTemplate points at the bourky.cz Czech composite radar archive.
const DefaultURLTemplate = "https://radar.bourky.cz/data/pacz2gmaps.z_max3d.{key}.0.png"

// KeyPlaceholder is replaced by the snapshot time key in URL templates.
const KeyPlaceholder = "{key}"

var _ radar.SnapshotFetcher = (*BourkyProvider)(nil)

// BourkyProvider implements radar.SnapshotFetcher for radar.bourky.cz style archives.
type BourkyProvider struct {
	name        string
	urlTemplate string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	logger      *log.Logger
}

func NewBourkyProvider(client *http.Client, urlTemplate string, retry RetryConfig, maxBytes int64) *BourkyProvider {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}

	// Three layers' worth of consecutive hard failures means the host is down.
	tripAfter := uint32(3 * max(retry.Attempts, 1))

	return &BourkyProvider{
		name:        "bourky",
		urlTemplate: urlTemplate,
		httpCfg: HTTPClientConfig{
			Client:   client,
			Retry:    retry,
			MaxBytes: maxBytes,
		},
		circuit: newBreaker("bourky", tripAfter),
		logger:  log.WithPrefix("provider"),
	}
}

func (p *BourkyProvider) Name() string {
	return p.name
}

// URL returns the snapshot URL for a provider time key.
func (p *BourkyProvider) URL(key string) string {
	return strings.ReplaceAll(p.urlTemplate, KeyPlaceholder, key)
}

// Fetch downloads the snapshot for target. Every failed attempt steps the
// target back by one interval; once the attempts are spent it returns
// radar.ErrSnapshotUnavailable.
func (p *BourkyProvider) Fetch(ctx context.Context, target time.Time) (radar.Snapshot, error) {
	if err := p.httpCfg.validate(); err != nil {
		return radar.Snapshot{}, err
	}

	retry := p.httpCfg.Retry
	at := target.UTC()

	var (
		lastErr error
		key     string
	)
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		key = radar.TimeKey(at, retry.StepBack)
		u := p.URL(key)
		p.logger.Debug("downloading snapshot", "url", u, "attempt", attempt)

		data, err := doRequest(ctx, p.httpCfg, p.circuit, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, u, nil)
		})
		if err == nil {
			return radar.Snapshot{
				Target:   target.UTC(),
				Resolved: radar.TruncateToInterval(at, retry.StepBack),
				Key:      key,
				Data:     data,
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return radar.Snapshot{}, ctxErr
		}

		lastErr = err
		p.logger.Warn("cannot download snapshot, trying an older one",
			"key", key, "attempt", attempt, "remaining", retry.Attempts-attempt, "err", err)

		at = at.Add(-retry.StepBack)
		if attempt < retry.Attempts {
			if err := sleepCtx(ctx, retry.Pause); err != nil {
				return radar.Snapshot{}, err
			}
		}
	}

	return radar.Snapshot{}, fmt.Errorf("%w: %d attempts, oldest key %s: %v",
		radar.ErrSnapshotUnavailable, retry.Attempts, key, lastErr)
}
