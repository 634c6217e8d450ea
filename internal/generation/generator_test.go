package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_Empty(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want bool
	}{
		{"zero value", Source{}, true},
		{"whitespace only", Source{Title: "  ", Content: "\n"}, true},
		{"title only", Source{Title: "Best CRM for freelancers?"}, false},
		{"content only", Source{Content: "Looking for advice"}, false},
		{"metadata without text", Source{Subreddit: "smallbusiness", URL: "https://reddit.com/x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.src.Empty())
		})
	}
}
