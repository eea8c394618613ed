// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for privchat.
//
// Configuration is TOML, loaded from ~/.privchat/config.toml on top of
// built-in defaults, with environment variable overrides applied last.
// A file watcher reloads the config on change so edits take effect
// without restarting the client.
package config
