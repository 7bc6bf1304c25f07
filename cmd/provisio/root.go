// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/woozymasta/pathrules"
)

// envPrefix prefixes environment variables overriding flags (PROVISIO_STRIP_ROOT, ...).
const envPrefix = "PROVISIO"

// Version is the semantic version (set via -ldflags).
var Version = "dev"

// app carries state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
}

// newRootCmd builds command tree writing output to stdout and logs to stderr.
func newRootCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:   "provisio",
		Short: "Pack and unpack ZIP and TAR archives reproducibly",
		Long: `provisio packs directory trees into ZIP, JAR or TAR (plain, gzip, xz, zstd)
archives and unpacks them, keeping permissions, symlinks and hard links.

Every flag can also be set with a PROVISIO_<FLAG> environment variable
(dashes become underscores) or a key in the --config YAML file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolP("verbose", "v", false, "log every entry")
	root.PersistentFlags().String("config", "", "YAML file with flag defaults")

	root.AddCommand(
		newPackCmd(a),
		newUnpackCmd(a),
		newListCmd(a),
	)

	return root
}

// init binds flags, environment and config file into viper and creates logger.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	a.logger = log.NewWithOptions(a.stderr, log.Options{Prefix: "provisio"})
	if a.v.GetBool("verbose") {
		a.logger.SetLevel(log.DebugLevel)
	}

	return nil
}

// ignoreRules converts gitignore-style lines into rules; "!" prefix re-includes.
func ignoreRules(lines []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if pattern, ok := strings.CutPrefix(line, "!"); ok {
			rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
			continue
		}

		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: line})
	}

	return rules
}
