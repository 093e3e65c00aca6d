package bgg

import (
	"context"
	"net/url"
	"strconv"
)

// Plays fetches the user's full play log, walking pages until the catalog
// returns an empty one.
func (c *Client) Plays(ctx context.Context, username string) ([]PlayEntry, error) {
	var all []PlayEntry
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("version", "1")
		query.Set("username", username)
		query.Set("page", strconv.Itoa(page))

		body, err := c.get(ctx, "/plays", query)
		if err != nil {
			return nil, wrapError("plays", c.baseURL+"/plays", err)
		}

		plays, err := c.parsePlays(body)
		if err != nil {
			return nil, wrapError("plays", "", err)
		}
		if len(plays) == 0 {
			return all, nil
		}
		all = append(all, plays...)
	}
}
