package permission

import "strings"

// MatchPattern checks if a parsed command matches a "cmd sub *" / "cmd
// *" / "*" style pattern — the shape a persisted Bash(...) rule's body
// takes.
func MatchPattern(pattern string, cmd BashCommand) bool {
	parts := strings.Split(pattern, " ")
	if len(parts) == 0 {
		return false
	}

	if parts[0] == "*" && len(parts) == 1 {
		return true
	}

	if parts[0] != "*" && parts[0] != cmd.Name {
		return false
	}

	if len(parts) == 1 {
		return cmd.Name == parts[0] && len(cmd.Args) == 0
	}

	if parts[len(parts)-1] == "*" {
		for i := 1; i < len(parts)-1; i++ {
			argIndex := i - 1
			if argIndex >= len(cmd.Args) {
				return false
			}
			if parts[i] != "*" && parts[i] != cmd.Args[argIndex] {
				return false
			}
		}
		return true
	}

	if len(parts)-1 != len(cmd.Args) {
		return false
	}
	for i := 1; i < len(parts); i++ {
		if parts[i] != cmd.Args[i-1] {
			return false
		}
	}
	return true
}

// BuildPattern creates the fallback "cmd sub *" / "cmd *" pattern body
// for a parsed command. For "git commit -m msg" this is "git commit *";
// for "ls -la" it is "ls *".
func BuildPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}
