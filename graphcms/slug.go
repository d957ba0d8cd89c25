package graphcms

import (
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// maxSlugBase bounds the normalized title portion of a slug, before the
// uniqueness suffix.
const maxSlugBase = 60

// MakeSlug derives a URL-safe slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, truncated at a hyphen
// boundary, then a base-36 timestamp suffix. Identical titles at different
// times yield different slugs; slugs are never reused.
func MakeSlug(title string) string {
	return slugAt(title, time.Now())
}

func slugAt(title string, now time.Time) string {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	if len(base) > maxSlugBase {
		base = base[:maxSlugBase]
		if i := strings.LastIndexByte(base, '-'); i > 0 {
			base = base[:i]
		}
	}
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
