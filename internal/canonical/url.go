// Package canonical derives stable identities for items: canonical URLs,
// content hashes, and the item ID used across every table.
package canonical

import (
	"net/url"
	"strings"
)

// trackingParams lists query parameters stripped during canonicalization.
// Matching is by exact name except the utm_ prefix, which is matched as a class.
var trackingParams = map[string]bool{
	"fbclid":      true,
	"gclid":       true,
	"msclkid":     true,
	"mc_cid":      true,
	"mc_eid":      true,
	"igshid":      true,
	"ref":         true,
	"source":      true,
	"cmpid":       true,
	"ito":         true,
	"ocid":        true,
	"smid":        true,
	"partner":     true,
	"output_type": true,
}

// httpsHosts lists hosts known to serve TLS where feed entries still carry
// plain-http links. Matching includes subdomains.
var httpsHosts = []string{
	"kentucky.com",
	"courier-journal.com",
	"wkyt.com",
	"wymt.com",
	"lex18.com",
	"whas11.com",
	"wdrb.com",
	"wave3.com",
	"kentuckytoday.com",
	"kentuckylantern.com",
	"spectrumnews1.com",
	"bing.com",
	"facebook.com",
}

// URL canonicalizes an article URL: lowercases scheme and host, strips
// tracking parameters, the fragment, and any trailing slash, and upgrades
// to https when the host is known to serve TLS. Invalid URLs are returned
// trimmed but otherwise untouched so the caller can still log them.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if parsed.Scheme == "http" && isKnownTLSHost(parsed.Host) {
		parsed.Scheme = "https"
	}

	query := parsed.Query()
	for name := range query {
		if strings.HasPrefix(strings.ToLower(name), "utm_") || trackingParams[strings.ToLower(name)] {
			query.Del(name)
		}
	}
	parsed.RawQuery = query.Encode()

	if len(parsed.Path) > 1 {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}

	return parsed.String()
}

func isKnownTLSHost(host string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, known := range httpsHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// Domain returns the registrable host of a URL, lowercased and without the
// www prefix. Used by the paywall detector's domain lists.
func Domain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
