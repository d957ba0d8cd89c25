package graphcms

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var urlSafe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestMakeSlugURLSafe(t *testing.T) {
	t.Parallel()

	titles := []string{
		"Ward Picnic 2025",
		"  Fall Festival!!  ",
		"Trek — What to Pack & Why",
		"100% Attendance?",
		"général conférence",
	}
	for _, title := range titles {
		s := MakeSlug(title)
		assert.Regexp(t, urlSafe, s, "title %q", title)
		assert.NotEmpty(t, s)
	}
}

func TestMakeSlugPrefix(t *testing.T) {
	t.Parallel()

	s := MakeSlug("Ward Picnic 2025")
	assert.True(t, strings.HasPrefix(s, "ward-picnic-2025-"), "got %q", s)
}

func TestSlugBaseLength(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("relief society activity ", 10)
	s := slugAt(long, time.Now())

	// Strip the timestamp suffix: everything after the last hyphen.
	base := s[:strings.LastIndex(s, "-")]
	assert.LessOrEqual(t, len(base), maxSlugBase)
	assert.Regexp(t, urlSafe, s)
}

func TestSlugUniquenessOverTime(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	a := slugAt("Ward Picnic 2025", t0)
	b := slugAt("Ward Picnic 2025", t0.Add(time.Millisecond))
	assert.NotEqual(t, a, b, "identical titles at different times must differ")
}

func TestSlugEmptyTitleFallback(t *testing.T) {
	t.Parallel()

	s := slugAt("!!!", time.Now())
	assert.True(t, strings.HasPrefix(s, "post-"), "got %q", s)
}
