package syncchan

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoPageURL is returned when a relative address has nothing to resolve against
var ErrNoPageURL = errors.New("relative address needs a page url")

// ResolveURL turns the configured address into the websocket URL to dial.
// Absolute ws/wss addresses are used as given. Anything else is resolved
// against the hosting page: an absolute path keeps the page host, a relative
// path is appended to the page path, and an https page selects wss.
func ResolveURL(address, pageURL, mode, key string) (string, error) {
	base := strings.TrimSpace(address)
	if !strings.HasPrefix(base, "ws://") && !strings.HasPrefix(base, "wss://") {
		if pageURL == "" {
			return "", ErrNoPageURL
		}
		page, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("invalid page url: %w", err)
		}
		if page.Host == "" {
			return "", fmt.Errorf("page url %q has no host", pageURL)
		}
		path := base
		if !strings.HasPrefix(path, "/") {
			dir := page.Path
			if !strings.HasSuffix(dir, "/") {
				dir += "/"
			}
			path = dir + path
		}
		scheme := "ws"
		if page.Scheme == "https" {
			scheme = "wss"
		}
		base = scheme + "://" + page.Host + path
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "mode=" + url.QueryEscape(mode) + "&key=" + url.QueryEscape(key), nil
}

// HostOf extracts the host name shown in the status view
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
