package news

import (
	"crypto/md5"
	"encoding/hex"
)

// MediaRef is one media:content, media:thumbnail or enclosure entry of a feed item.
type MediaRef struct {
	URL    string
	Type   string
	Medium string
}

// RawItem is a single feed entry as fetched, before any filtering.
type RawItem struct {
	Title       string
	Link        string
	Description string // raw markup
	Content     string // full content markup, if the feed carries one
	Published   string
	ImageURL    string
	SourceName  string
	FeedURL     string

	MediaContents   []MediaRef
	MediaThumbnails []MediaRef
	Enclosures      []MediaRef
}

// Fingerprint returns the dedup key of the item.
func (i RawItem) Fingerprint() string {
	return Fingerprint(i.Title, i.Link)
}

// Fingerprint is the hex MD5 of title+link. Edits to an article that keep
// both title and link are not detected.
func Fingerprint(title, link string) string {
	sum := md5.Sum([]byte(title + link))
	return hex.EncodeToString(sum[:])
}

// Region is a named target with its own feeds, keywords and channel.
type Region struct {
	Name     string   `yaml:"name"`
	Channel  string   `yaml:"channel"`
	Sources  []string `yaml:"sources"`
	Keywords []string `yaml:"keywords"`
	Hashtags []string `yaml:"hashtags"`
}

// ProcessedPost is a summarised, translated item ready for publishing.
type ProcessedPost struct {
	Title      string
	Text       string
	Link       string
	ImageURL   string
	Hashtags   []string
	SourceName string
}
