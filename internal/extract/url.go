package extract

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL validates a candidate link from a listing page and
// resolves it against the page's base URL. Links with non-web schemes
// (javascript:, mailto:, tel:, data:) are rejected; relative links are
// made absolute; absolute http(s) links pass through unchanged.
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link")
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", href, err)
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("rejecting link %q: scheme %q", href, ref.Scheme)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base %q: %w", base, err)
	}
	if !baseURL.IsAbs() {
		return "", fmt.Errorf("base %q is not absolute", base)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
