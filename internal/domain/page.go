package domain

// CursorPage wraps a single page of results together with the token needed to
// fetch the next page. An empty NextPageToken means the listing is exhausted.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
