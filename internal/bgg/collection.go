package bgg

import (
	"context"
	"net/url"
)

// Collection fetches one collection query for the user. params carries
// the ownership/status filters (own=1, wishlist=1, subtype=...); the
// caller's values are copied, never mutated.
func (c *Client) Collection(ctx context.Context, username string, params url.Values) ([]CollectionEntry, error) {
	query := url.Values{}
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	query.Set("version", "1")
	query.Set("username", username)

	body, err := c.get(ctx, "/collection", query)
	if err != nil {
		return nil, wrapError("collection", c.baseURL+"/collection", err)
	}

	entries, err := c.parseCollection(body)
	if err != nil {
		return nil, wrapError("collection", "", err)
	}
	return entries, nil
}
