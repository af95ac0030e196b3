// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration commands.
//
// Command: config [subcommand]
// Short:   Show or change settings
//
// Subcommands:
//   show (default)    Print the effective configuration
//   get <key>         Print one value
//   set <key> <val>   Change one value in the config file
//   path              Print the config file location
//   keys              List every key
//   reset             Write the defaults to the config file
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/trifactor-tui/internal/config"
)

// HandleConfig runs a config subcommand.
func HandleConfig(args Args, out io.Writer) error {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	sub := strings.ToLower(args.Subcommand)
	switch sub {
	case "", "show":
		cfg, _, err := LoadConfig(args.ConfigPath)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", cfg).Write(out)
		}
		fmt.Fprintln(out, DimStyle.Render("# "+path))
		fmt.Fprint(out, cfg.String())
		return nil

	case "get":
		if args.ConfigKey == "" {
			return errors.New("usage: trifactor config get <key>")
		}
		cfg, _, err := LoadConfig(args.ConfigPath)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", map[string]any{"key": args.ConfigKey, "value": v}).Write(out)
		}
		fmt.Fprintln(out, v)
		return nil

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return errors.New("usage: trifactor config set <key> <value>")
		}
		return setConfigValue(path, args.ConfigKey, args.ConfigVal, out)

	case "path":
		fmt.Fprintln(out, path)
		return nil

	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "reset":
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("Wrote defaults to "+path))
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (try: show, get, set, path, keys, reset)", args.Subcommand)
	}
}

// setConfigValue edits the file without applying environment overrides,
// so they are never persisted.
func setConfigValue(path, key, value string, out io.Writer) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s = %s\n", RenderStatus("ok"), key, value)
	return nil
}
