// Package config loads the small operator-facing configuration surface
// the orchestrator needs to start: listen port, bot token, operator chat
// id, and the agent binary to launch per session.
//
// Configuration is TOML, loaded with spf13/viper with environment
// variable overrides under the SESSIONBRIDGE_ prefix (e.g.
// SESSIONBRIDGE_TELEGRAM_BOT_TOKEN). A missing config file is not an
// error — defaults and environment variables may be enough on their
// own — but a missing bot token or operator chat id fails Load with a
// "configuration absent" error the caller turns into a non-zero exit.
//
// This package does not own parsing of the terminal wrapper's own
// config, the setup wizard's state, or CLI flags beyond the config file
// path — those are external collaborators per the orchestrator's scope.
package config
