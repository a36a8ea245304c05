// Package utils exposes reusable helpers consumed by the CLI commands.
//
// It houses ConfigurationLoader and LoggerFactory, which integrate Viper,
// environment variables and zap logging, along with the command context
// accessor shared between the root command and its subcommands.
package utils
