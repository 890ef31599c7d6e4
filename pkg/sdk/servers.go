package sdk

func (c *Client) ListServers() ([]Server, error) {
	var servers []Server
	err := c.get("/servers", &servers)
	return servers, err
}

func (c *Client) GetServer(address string) (*Server, error) {
	var server Server
	if err := c.get(serverPath(address), &server); err != nil {
		return nil, err
	}
	return &server, nil
}

func (c *Client) AddServer(req AddServerRequest) (*Server, error) {
	var server Server
	if err := c.post("/servers", req, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

func (c *Client) RenameServer(address, name string) (*Server, error) {
	var server Server
	if err := c.put(serverPath(address), map[string]string{"name": name}, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

func (c *Client) RemoveServer(address string) error {
	return c.delete(serverPath(address))
}

func (c *Client) RefreshServer(address string) error {
	return c.post(serverPath(address)+"/refresh", nil, nil)
}

// RefreshAll reports false when the daemon was already refreshing.
func (c *Client) RefreshAll() (bool, error) {
	var resp struct {
		Started bool `json:"started"`
	}
	err := c.post("/refresh", nil, &resp)
	return resp.Started, err
}

func (c *Client) CheckUpdates() (*UpdateInfo, error) {
	var info UpdateInfo
	err := c.get("/updates", &info)
	return &info, err
}
