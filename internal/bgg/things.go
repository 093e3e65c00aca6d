package bgg

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Ids per detail request. More than this runs into the catalog's
// URL-length limit (414).
const thingChunkSize = 20

// Things fetches full detail for the given item ids, statistics included,
// in chunks of twenty ids per request.
func (c *Client) Things(ctx context.Context, ids []int64) ([]ItemDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []ItemDetail
	for chunk := range slices.Chunk(ids, thingChunkSize) {
		query := url.Values{}
		query.Set("stats", "1")
		query.Set("id", joinIDs(chunk))

		body, err := c.get(ctx, "/thing/", query)
		if err != nil {
			return nil, wrapError("things", c.baseURL+"/thing/", err)
		}

		parsed, err := c.parseItems(body)
		if err != nil {
			return nil, wrapError("things", "", err)
		}
		items = append(items, parsed...)
	}

	return items, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
