package radar

import "time"

// TimeKeyLayout is the provider's time key format (UTC).
const TimeKeyLayout = "20060102.1504"

// LayerTimes returns n targets spaced interval apart going back from now.
// The first element is now itself.
func LayerTimes(now time.Time, n int, interval time.Duration) []Layer {
	if n <= 0 {
		return nil
	}

	now = now.UTC()
	layers := make([]Layer, 0, n)
	for i := 0; i < n; i++ {
		layers = append(layers, Layer{
			Index:  i,
			Target: now.Add(-time.Duration(i) * interval),
		})
	}
	return layers
}

// TruncateToInterval rounds t down to the preceding multiple of interval.
func TruncateToInterval(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(interval)
}

// TimeKey formats t, truncated to interval, the way the provider names its files.
func TimeKey(t time.Time, interval time.Duration) string {
	return TruncateToInterval(t, interval).Format(TimeKeyLayout)
}
