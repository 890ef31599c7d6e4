package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	RepoOwner = "mcwatch"
	RepoName  = "mcwatch"
)

// CurrentVersion is overridden at build time with -ldflags "-X".
var CurrentVersion = "v0.4.0"

type Tag struct {
	Name string `json:"name"`
}

type UpdateInfo struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}

type Checker struct {
	APIBase    string
	HTTPClient *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		APIBase:    "https://api.github.com",
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	return NewChecker().Check(ctx)
}

func (c *Checker) Check(ctx context.Context) (*UpdateInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/tags", c.APIBase, RepoOwner, RepoName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "mcwatch-updater")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch tags: %s", resp.Status)
	}

	var tags []Tag
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}

	latestTag := CurrentVersion
	for _, tag := range tags {
		if compareVersions(tag.Name, latestTag) > 0 {
			latestTag = tag.Name
		}
	}

	info := &UpdateInfo{
		CurrentVersion:  CurrentVersion,
		LatestVersion:   latestTag,
		UpdateAvailable: compareVersions(latestTag, CurrentVersion) > 0,
	}
	if info.UpdateAvailable {
		info.ReleaseURL = fmt.Sprintf("https://github.com/%s/%s/releases/tag/%s", RepoOwner, RepoName, latestTag)
	}
	return info, nil
}

// compareVersions orders dotted numeric versions with an optional "v"
// prefix. Pre-release suffixes ("-rc1") are ignored.
func compareVersions(v1, v2 string) int {
	return slices.Compare(versionNumbers(v1), versionNumbers(v2))
}

func versionNumbers(v string) []int {
	v, _, _ = strings.Cut(strings.TrimPrefix(v, "v"), "-")
	fields := strings.Split(v, ".")
	nums := make([]int, len(fields))
	for i, f := range fields {
		nums[i], _ = strconv.Atoi(f)
	}
	return nums
}
