package models

import "time"

type FeedItemType string

const (
	FeedItemPost FeedItemType = "post"
	FeedItemAd   FeedItemType = "ad"
)

// FeedItem is either a post or an ad. Data holds a Post or an Ad value.
type FeedItem struct {
	Type FeedItemType `json:"type"`
	Data interface{}  `json:"data"`
}

func PostItem(p Post) FeedItem {
	return FeedItem{Type: FeedItemPost, Data: p}
}

func AdItem(a Ad) FeedItem {
	return FeedItem{Type: FeedItemAd, Data: a}
}

type Pagination struct {
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

type FeedPage struct {
	Items      []FeedItem `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// FormatCursor renders a post creation time as a feed cursor.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseCursor is the inverse of FormatCursor.
func ParseCursor(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
