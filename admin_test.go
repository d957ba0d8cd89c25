package wardblog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivergrove/wardblog/graphcms"
)

func TestUpdateMessage(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		result graphcms.UpdateResult
		want   string
	}{
		{
			name: "all saved and published",
			result: graphcms.UpdateResult{
				Phases: []graphcms.PhaseResult{
					{Phase: graphcms.PhaseCore},
					{Phase: graphcms.PhaseImage},
					{Phase: graphcms.PhaseCategories},
				},
				Published: true,
			},
			want: "Saved and published.",
		},
		{
			name: "saved but republish failed",
			result: graphcms.UpdateResult{
				Phases: []graphcms.PhaseResult{
					{Phase: graphcms.PhaseCore},
					{Phase: graphcms.PhaseImage},
					{Phase: graphcms.PhaseCategories},
				},
				PublishErr: boom,
			},
			want: "Saved, but re-publishing failed. Save again to retry.",
		},
		{
			name: "one phase failed, rest published",
			result: graphcms.UpdateResult{
				Phases: []graphcms.PhaseResult{
					{Phase: graphcms.PhaseCore},
					{Phase: graphcms.PhaseImage, Err: boom},
					{Phase: graphcms.PhaseCategories},
				},
				Published: true,
			},
			want: "Some changes did not save: featured image. Everything else was published.",
		},
		{
			name: "two phases failed",
			result: graphcms.UpdateResult{
				Phases: []graphcms.PhaseResult{
					{Phase: graphcms.PhaseCore, Err: boom},
					{Phase: graphcms.PhaseImage},
					{Phase: graphcms.PhaseCategories, Err: boom},
				},
			},
			want: "Some changes did not save: text, categories.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, updateMessage(tt.result))
		})
	}
}

func TestJpegName(t *testing.T) {
	assert.Equal(t, "choir-photo.jpg", jpegName("choir-photo.png"))
	assert.Equal(t, "IMG_2041.jpg", jpegName("IMG_2041.HEIC"))
	assert.Equal(t, "upload.jpg", jpegName(".png"))
}
