/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package plumeutil holds the configuration, registry-loading, and
// command-line plumbing shared between the plume server and the
// plume CLI, generalizing the teacher's inmaputil package (Cfg,
// viper-backed option registration, cobra command tree) to this
// module's configure/prerender/serve command surface.
package plumeutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oceantracer/plume"
)

// Cfg holds the CLI's viper-backed configuration and its cobra
// command tree, mirroring the teacher's inmaputil.Cfg.
type Cfg struct {
	*viper.Viper

	Root, serveCmd, prerenderCmd, versionCmd *cobra.Command
}

var options []struct {
	name, usage string
	defaultVal  interface{}
}

// addOption registers a persistent flag on cmd and records its name
// and default for later lookup, mirroring the teacher's per-option
// flag-registration loop in inmaputil/cmd.go.
func addOption(flags *pflag.FlagSet, name, usage string, defaultVal interface{}) {
	switch v := defaultVal.(type) {
	case string:
		flags.String(name, v, usage)
	case int:
		flags.Int(name, v, usage)
	case float64:
		flags.Float64(name, v, usage)
	case bool:
		flags.Bool(name, v, usage)
	default:
		panic(fmt.Sprintf("plumeutil: unsupported option type %T for %q", defaultVal, name))
	}
	options = append(options, struct {
		name, usage string
		defaultVal  interface{}
	}{name, usage, defaultVal})
}

// InitializeConfig builds the Cfg and its command tree. Subcommand
// RunE functions are NOT attached here -- cmd/plume/main.go attaches
// them, since that is the only place with access to the concrete
// grid-loading and server-wiring code this package must stay free of
// importing (plumeutil must not depend on package server).
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "plume",
		Short: "An ocean tracer transport simulator.",
		Long: `Plume simulates the Lagrangian transport of a released tracer through
daily gridded ocean current and diffusivity fields.

Configuration can be set with a configuration file (--config), command-line
flags, or PLUME_<name> environment variables.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:               "version",
		Short:             "Print the version number",
		DisableAutoGenTag: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("plume v%s\n", plume.Version)
		},
	}

	cfg.serveCmd = &cobra.Command{
		Use:               "serve",
		Short:             "Start the interactive control-interface server.",
		DisableAutoGenTag: true,
	}

	cfg.prerenderCmd = &cobra.Command{
		Use:               "prerender",
		Short:             "Run a simulation to completion and write the recorded frames.",
		DisableAutoGenTag: true,
	}

	flags := cfg.Root.PersistentFlags()
	flags.String("config", "", "configuration file path")
	addOption(flags, "release-lat", "release location latitude, degrees", 0.0)
	addOption(flags, "release-lon", "release location longitude, degrees", 0.0)
	addOption(flags, "start-date", "simulation start date, RFC3339", time.Now().Format(time.RFC3339))
	addOption(flags, "end-date", "simulation end date, RFC3339 (prerender only)", time.Now().AddDate(0, 0, 30).Format(time.RFC3339))
	addOption(flags, "tracer-id", "tracer registry ID", "cs137")
	addOption(flags, "particle-count", "number of particles in the pool", 10000)
	addOption(flags, "rk4", "use adaptive RK4 advection instead of Euler", true)
	addOption(flags, "diffusivity-scale", "multiplier on grid diffusivity", 1.0)
	addOption(flags, "simulation-speed", "simulation-days per wall-clock day (serve only)", 86400.0)
	addOption(flags, "data-dir", "directory containing grid metadata.json and daily binaries", "./data")
	addOption(flags, "registry-file", "optional TOML/YAML tracer registry override", "")
	addOption(flags, "record-interval", "simulation-days between recorded frames", plume.DefaultRecordInterval)
	addOption(flags, "fixed-step", "simulation-days per prerender tick", 0.1)
	addOption(flags, "output-file", "prerender: path to write recorded frames as JSON", "")
	addOption(flags, "address", "serve: listen address", "localhost:7171")
	addOption(flags, "phases", `release phases as JSON, e.g. [{"start_day":0,"end_day":1,"total":16.2e6,"unit":"GBq"}]`, "[]")

	for _, opt := range options {
		if err := cfg.BindPFlag(opt.name, flags.Lookup(opt.name)); err != nil {
			panic(err)
		}
	}
	cfg.SetEnvPrefix("PLUME")
	cfg.AutomaticEnv()
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cfg.Root.AddCommand(cfg.versionCmd, cfg.serveCmd, cfg.prerenderCmd)
	return cfg
}

// setConfig finds and reads in the configuration file, if one was
// specified.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("plume: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// ServeCmd returns the "serve" subcommand for main.go to attach a
// RunE to.
func (cfg *Cfg) ServeCmd() *cobra.Command { return cfg.serveCmd }

// PrerenderCmd returns the "prerender" subcommand for main.go to
// attach a RunE to.
func (cfg *Cfg) PrerenderCmd() *cobra.Command { return cfg.prerenderCmd }

// ParseRunConfig builds a plume.Config from the bound flag values,
// per spec.md section 6's configure() payload.
func (cfg *Cfg) ParseRunConfig() (plume.Config, error) {
	startDate, err := time.Parse(time.RFC3339, os.ExpandEnv(cfg.GetString("start-date")))
	if err != nil {
		return plume.Config{}, fmt.Errorf("plume: invalid start-date: %v", err)
	}
	endDate, err := time.Parse(time.RFC3339, os.ExpandEnv(cfg.GetString("end-date")))
	if err != nil {
		return plume.Config{}, fmt.Errorf("plume: invalid end-date: %v", err)
	}
	phases, err := parsePhases(cfg.GetString("phases"))
	if err != nil {
		return plume.Config{}, err
	}
	return plume.Config{
		ReleaseLocation:  plume.LatLon{Lat: cfg.GetFloat64("release-lat"), Lon: cfg.GetFloat64("release-lon")},
		StartDate:        startDate,
		EndDate:          endDate,
		TracerID:         cfg.GetString("tracer-id"),
		ParticleCount:    cfg.GetInt("particle-count"),
		Phases:           phases,
		RK4Enabled:       cfg.GetBool("rk4"),
		DiffusivityScale: float32(cfg.GetFloat64("diffusivity-scale")),
		SimulationSpeed:  float32(cfg.GetFloat64("simulation-speed")),
	}, nil
}

// rawPhase mirrors plume.Phase but accepts a phase total as either a
// bare number or a govaluate expression string, so an operator can
// write a release total as "16.2e6 * 0.5" instead of pre-computing it.
type rawPhase struct {
	StartDay float64         `json:"start_day"`
	EndDay   float64         `json:"end_day"`
	Total    json.RawMessage `json:"total"`
	Unit     string          `json:"unit"`
}

// parsePhases decodes the --phases JSON flag into plume.Phase values,
// evaluating any string-valued "total" field as an arithmetic
// expression via govaluate.
func parsePhases(raw string) ([]plume.Phase, error) {
	if raw == "" {
		return nil, nil
	}
	var rawPhases []rawPhase
	if err := json.Unmarshal([]byte(raw), &rawPhases); err != nil {
		return nil, fmt.Errorf("plume: invalid phases JSON: %v", err)
	}
	phases := make([]plume.Phase, len(rawPhases))
	for i, rp := range rawPhases {
		total, err := evaluateTotal(rp.Total)
		if err != nil {
			return nil, fmt.Errorf("plume: phase %d: %v", i, err)
		}
		phases[i] = plume.Phase{StartDay: rp.StartDay, EndDay: rp.EndDay, Total: total, Unit: rp.Unit}
	}
	return phases, nil
}

// evaluateTotal parses a JSON "total" value that is either a plain
// number or a quoted arithmetic expression.
func evaluateTotal(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var expr string
	if err := json.Unmarshal(raw, &expr); err != nil {
		return 0, fmt.Errorf("total must be a number or an expression string: %v", err)
	}
	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid total expression %q: %v", expr, err)
	}
	result, err := evaluable.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("evaluating total expression %q: %v", expr, err)
	}
	v, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("total expression %q did not evaluate to a number", expr)
	}
	return v, nil
}
