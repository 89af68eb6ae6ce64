// Package agentcatalog is the Agent Registry & Prompts component (C6):
// a fixed per-role system prompt and starter-prompt catalog, seeded from
// an embedded YAML document and mutable at runtime (process-local only).
package agentcatalog

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flipsync/fabric/types"
)

//go:embed default.yaml
var defaultYAML []byte

type roleEntry struct {
	SystemPrompt string   `yaml:"systemPrompt"`
	Starters     []string `yaml:"starters"`
}

// Catalog holds per-role prompts and starters. The zero value is not
// usable; construct with NewCatalog.
type Catalog struct {
	mu      sync.RWMutex
	entries map[types.AgentRole]roleEntry
}

func roleKey(role types.AgentRole) string {
	switch role {
	case types.RoleMarket:
		return "market"
	case types.RoleContent:
		return "content"
	case types.RoleLogistics:
		return "logistics"
	case types.RoleExecutive:
		return "executive"
	default:
		return "liaison"
	}
}

// NewCatalog loads the embedded default prompt set. It panics only if
// the embedded YAML fails to parse, which would indicate a packaging
// defect, not a runtime condition.
func NewCatalog() *Catalog {
	var raw map[string]roleEntry
	if err := yaml.Unmarshal(defaultYAML, &raw); err != nil {
		panic("agentcatalog: embedded default.yaml is invalid: " + err.Error())
	}

	entries := make(map[types.AgentRole]roleEntry, len(types.Roles))
	for _, role := range types.Roles {
		entries[role] = raw[roleKey(role)]
	}
	return &Catalog{entries: entries}
}

// SystemPromptFor returns role's canonical system prompt. An unknown
// role falls back to LIAISON's prompt.
func (c *Catalog) SystemPromptFor(role types.AgentRole) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[role]; ok {
		return entry.SystemPrompt
	}
	return c.entries[types.RoleLiaison].SystemPrompt
}

// StartersFor returns role's conversation starters. An unknown role
// falls back to LIAISON's starters.
func (c *Catalog) StartersFor(role types.AgentRole) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[role]
	if !ok {
		entry = c.entries[types.RoleLiaison]
	}
	out := make([]string, len(entry.Starters))
	copy(out, entry.Starters)
	return out
}

// SetPromptFor overrides role's system prompt for the lifetime of this
// process. Not persisted across restarts.
func (c *Catalog) SetPromptFor(role types.AgentRole, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[role]
	entry.SystemPrompt = text
	c.entries[role] = entry
}
