// Package badge builds "Open in Colab" badge markup and recognises existing
// badge cells.
package badge

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// AltText is the image alt text of every generated badge.
	AltText = "Open In Colab"
	// ImageURL is the hosted Colab badge image.
	ImageURL = "https://colab.research.google.com/assets/colab-badge.svg"
	// DefaultBaseURL points at the course repository the tool was first written for.
	DefaultBaseURL = "https://colab.research.google.com/github/lukebarousse/Python_Data_Analytics_Course/blob/main"
)

// Badge describes one rendered badge.
type Badge struct {
	AltText   string `json:"alt_text"`
	ImageURL  string `json:"image_url"`
	TargetURL string `json:"target_url"`
}

// Markdown renders the badge as the HTML anchor Colab itself suggests.
func (b Badge) Markdown() string {
	return fmt.Sprintf("<a target=\"_blank\" href=\"%s\">\n  <img src=\"%s\" alt=\"%s\"/>\n</a>",
		b.TargetURL, b.ImageURL, b.AltText)
}

// Builder derives badges from notebook paths relative to the scanned root.
type Builder struct {
	baseURL string
}

// NewBuilder returns a Builder for the given repository base URL. A trailing
// slash on baseURL is dropped.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// BaseURL returns the normalised repository base URL.
func (b *Builder) BaseURL() string {
	return b.baseURL
}

// Link returns {baseURL}/{rel}. rel is embedded verbatim (slash separated,
// not URL-encoded).
func (b *Builder) Link(rel string) string {
	return b.baseURL + "/" + filepath.ToSlash(rel)
}

// Badge returns the badge for the notebook at rel.
func (b *Builder) Badge(rel string) Badge {
	return Badge{
		AltText:   AltText,
		ImageURL:  ImageURL,
		TargetURL: b.Link(rel),
	}
}

// Source returns the markdown cell source for the notebook at rel.
func (b *Builder) Source(rel string) string {
	return b.Badge(rel).Markdown()
}
