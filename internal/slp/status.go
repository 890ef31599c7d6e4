package slp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mcwatch/internal/domain"
)

type statusPayload struct {
	Version *struct {
		Name     *string `json:"name"`
		Protocol int     `json:"protocol"`
	} `json:"version"`
	Players *struct {
		Online *int `json:"online"`
		Max    *int `json:"max"`
		Sample []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"sample"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
}

// ParseStatus decodes a status response body into an online result.
// version.name, players.online and players.max are required.
func ParseStatus(raw []byte) (domain.StatusResult, error) {
	if len(raw) > MaxStatusJSON {
		return domain.StatusResult{}, protocolError("parse status", errOversized)
	}

	var p statusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.StatusResult{}, protocolError("parse status", err)
	}

	switch {
	case p.Version == nil || p.Version.Name == nil:
		return domain.StatusResult{}, protocolError("parse status", errors.New("missing version.name"))
	case p.Players == nil || p.Players.Online == nil:
		return domain.StatusResult{}, protocolError("parse status", errors.New("missing players.online"))
	case p.Players.Max == nil:
		return domain.StatusResult{}, protocolError("parse status", errors.New("missing players.max"))
	}

	sample := make([]string, 0, len(p.Players.Sample))
	for _, s := range p.Players.Sample {
		sample = append(sample, s.Name)
	}

	res := domain.Online(*p.Version.Name, *p.Players.Online, *p.Players.Max, sample)
	res.Protocol = p.Version.Protocol
	res.MOTD = flattenDescription(p.Description)
	return res, nil
}

// chatComponent is the subset of the chat format needed to render a MOTD.
type chatComponent struct {
	Text  string            `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// flattenDescription turns a plain string or chat component into text with
// legacy section-sign formatting codes removed. Unknown shapes yield "".
func flattenDescription(raw json.RawMessage) string {
	var sb strings.Builder
	writeComponent(&sb, raw, 0)
	return stripFormatting(sb.String())
}

func writeComponent(sb *strings.Builder, raw json.RawMessage, depth int) {
	if len(raw) == 0 || depth > 16 {
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		sb.WriteString(s)
		return
	}

	var c chatComponent
	if err := json.Unmarshal(raw, &c); err != nil {
		return
	}
	sb.WriteString(c.Text)
	for _, e := range c.Extra {
		writeComponent(sb, e, depth+1)
	}
}

func stripFormatting(s string) string {
	if !strings.ContainsRune(s, '§') {
		return s
	}
	var sb strings.Builder
	skip := false
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		if r == '§' {
			skip = true
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func describe(res domain.StatusResult) string {
	return fmt.Sprintf("%s %d/%d", res.Version, res.PlayersOnline, res.PlayersMax)
}
