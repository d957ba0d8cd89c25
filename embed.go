package wardblog

import "embed"

// staticFS ships the stylesheet with the binary so a deploy is one file.
//
//go:embed static
var staticFS embed.FS
