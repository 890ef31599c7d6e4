package sdk

import "net/url"

func (c *Client) ListSettings() (map[string]string, error) {
	var settings map[string]string
	err := c.get("/settings", &settings)
	return settings, err
}

func (c *Client) GetSetting(key string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := c.get("/settings/"+url.PathEscape(key), &resp)
	return resp.Value, err
}

func (c *Client) SetSetting(key, value string) error {
	return c.put("/settings/"+url.PathEscape(key), map[string]string{"value": value}, nil)
}
