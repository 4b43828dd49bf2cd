// Copyright (C) 2024 coldb Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config holds cmd/coldbd's daemon configuration: a persistence
// directory, a Unix-domain socket path, and a worker pool size, each
// overridable by an optional YAML file layered beneath command-line flags,
// grounded on cmd/snellerd/run_daemon.go's flag.NewFlagSet daemon-config
// style.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"sigs.k8s.io/yaml"
)

// Daemon holds cmd/coldbd's resolved configuration.
type Daemon struct {
	Dir     string `json:"dir"`
	Sock    string `json:"sock"`
	Workers int    `json:"workers"`
}

// defaultDaemon returns the built-in defaults before any file or flag is
// applied.
func defaultDaemon() Daemon {
	return Daemon{
		Dir:     ".coldb",
		Sock:    "coldb.sock",
		Workers: runtime.NumCPU(),
	}
}

// LoadFile reads a YAML config file at path and overlays the fields it
// sets onto the built-in defaults. A missing path is not an error; it
// simply yields the defaults, since the config file is optional per
// SPEC_FULL.md's daemon config section.
func LoadFile(path string) (Daemon, error) {
	d := defaultDaemon()
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return d, nil
}

// ParseFlags registers -dir/-sock/-workers/-config flags on fs, parses
// args, loads the optional -config YAML file, and returns the daemon
// config with any explicitly-set flags overriding the file's values. fs is
// caller-owned (as in run_daemon.go's daemonCmd) so cmd/coldbd can attach
// it to its own flag.ExitOnError set.
func ParseFlags(fs *flag.FlagSet, args []string) (Daemon, error) {
	configPath := fs.String("config", "", "optional YAML config file")
	dir := fs.String("dir", "", "persistence directory (overrides config file)")
	sock := fs.String("sock", "", "unix-domain socket path (overrides config file)")
	workers := fs.Int("workers", 0, "worker pool size (overrides config file, 0 uses config/default)")
	if err := fs.Parse(args); err != nil {
		return Daemon{}, err
	}

	d, err := LoadFile(*configPath)
	if err != nil {
		return Daemon{}, err
	}
	if *dir != "" {
		d.Dir = *dir
	}
	if *sock != "" {
		d.Sock = *sock
	}
	if *workers != 0 {
		d.Workers = *workers
	}
	return d, nil
}
