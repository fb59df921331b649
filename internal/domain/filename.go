package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// webSuffixes are common page suffixes stripped from the URL resource
// before it is folded into a filename.
var webSuffixes = []string{".html", ".htm", ".php", ".aspx", ".asp", ".jsp"}

// maxResourceLen bounds the sanitised URL-resource fragment of a filename.
const maxResourceLen = 64

// BuildFilename derives the deterministic on-disk name for a document:
//
//	{module}_{section}_{sanitised url resource}_{hash(url)}_{publish date}.{ext}
//
// The full URL is folded into a 64-bit xxhash so two documents differing
// only in URL never collide even when their sanitised resources match.
func BuildFilename(d *Document, ext string) string {
	resource := urlResource(d.URL)
	for _, suffix := range webSuffixes {
		resource = strings.TrimSuffix(resource, suffix)
	}
	resource = sanitiseResource(resource)
	if len(resource) > maxResourceLen {
		resource = resource[len(resource)-maxResourceLen:]
	}

	hash := xxhash.Sum64String(d.URL)
	return fmt.Sprintf("%s_%s_%s_%d_%s.%s",
		d.Module, d.SectionName, resource, hash, d.PublishDate, ext)
}

// urlResource extracts the path-and-query portion of a URL, falling back
// to the raw string when it does not parse as an absolute URL.
func urlResource(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	resource := u.Path
	if u.RawQuery != "" {
		resource += "_" + u.RawQuery
	}
	return resource
}

// resourceReplacer maps path separators and punctuation that is unsafe
// or noisy in filenames to underscores.
var resourceReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "?", "_", "&", "_", "=", "_",
	"%", "_", "#", "_", ".", "_", ",", "_", ":", "_",
	";", "_", " ", "_", "'", "_", "\"", "_",
)

func sanitiseResource(resource string) string {
	resource = resourceReplacer.Replace(resource)
	for strings.Contains(resource, "__") {
		resource = strings.ReplaceAll(resource, "__", "_")
	}
	return strings.Trim(resource, "_")
}
