package sdk

import "mcwatch/internal/domain"

type (
	Server      = domain.ServerEntry
	Status      = domain.StatusResult
	ChangeEvent = domain.ChangeEvent
)

type AddServerRequest struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type UpdateInfo struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}
