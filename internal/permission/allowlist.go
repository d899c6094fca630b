package permission

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// allowlistFile is the on-disk shape at <cwd>/.claude/settings.local.json
// (§6). Only the allow list is consulted by the coordinator; deny/ask
// are round-tripped so a hand-edited file isn't clobbered by our
// append-only writes.
type allowlistFile struct {
	Permissions struct {
		Allow []string `json:"allow"`
		Deny  []string `json:"deny"`
		Ask   []string `json:"ask"`
	} `json:"permissions"`
}

func allowlistPath(cwd string) string {
	return filepath.Join(cwd, ".claude", "settings.local.json")
}

// LoadAllowRules reads the project-local allow-list. A missing file, or
// a missing/malformed "permissions" key, is treated as an empty list —
// never an error the caller must handle (§6).
func LoadAllowRules(cwd string) []string {
	data, err := os.ReadFile(allowlistPath(cwd))
	if err != nil {
		return nil
	}
	var f allowlistFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f.Permissions.Allow
}

// AddAllowRule appends rule to the project-local allow-list, creating
// the file and its directory if necessary, deduplicating against the
// existing list. Concurrent writers may race; last-writer-wins is
// acceptable for a single-operator deployment (§5).
func AddAllowRule(cwd, rule string) error {
	path := allowlistPath(cwd)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var f allowlistFile
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &f) // malformed existing file: start fresh
	}

	for _, existing := range f.Permissions.Allow {
		if existing == rule {
			return nil
		}
	}
	f.Permissions.Allow = append(f.Permissions.Allow, rule)
	if f.Permissions.Deny == nil {
		f.Permissions.Deny = []string{}
	}
	if f.Permissions.Ask == nil {
		f.Permissions.Ask = []string{}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
