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

// Command plume is a command-line interface for the plume ocean
// tracer transport simulator.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oceantracer/plume"
	"github.com/oceantracer/plume/grid"
	"github.com/oceantracer/plume/plumeutil"
	"github.com/oceantracer/plume/server"
)

const dayCacheSize = 8

func loadFields(cfg *plumeutil.Cfg) (*grid.CurrentField, *grid.DiffusivityField, error) {
	dataDir := cfg.GetString("data-dir")
	metadataPath := filepath.Join(dataDir, "metadata.json")
	current, err := grid.NewCurrentField(metadataPath, dataDir, dayCacheSize, 0)
	if err != nil {
		return nil, nil, err
	}
	coordPath := filepath.Join(dataDir, "eke_coords.bin")
	diffusivity, err := grid.NewDiffusivityField(metadataPath, coordPath, dataDir, dayCacheSize, 0)
	if err != nil {
		logrus.WithError(err).Warn("diffusivity field unavailable, falling back to the integrator's constant K")
		diffusivity = nil
	}
	return current, diffusivity, nil
}

func main() {
	cfg := plumeutil.InitializeConfig()

	cfg.ServeCmd().RunE = func(cmd *cobra.Command, args []string) error {
		current, diffusivity, err := loadFields(cfg)
		if err != nil {
			return err
		}
		registry, err := plumeutil.LoadRegistry(cfg.GetString("registry-file"))
		if err != nil {
			return err
		}
		srv := server.New(current, diffusivity, registry)
		addr := cfg.GetString("address")
		logrus.WithField("address", addr).Info("plume serving")
		return http.ListenAndServe(addr, srv.Handler())
	}

	cfg.PrerenderCmd().RunE = func(cmd *cobra.Command, args []string) error {
		current, diffusivity, err := loadFields(cfg)
		if err != nil {
			return err
		}
		registry, err := plumeutil.LoadRegistry(cfg.GetString("registry-file"))
		if err != nil {
			return err
		}
		runCfg, err := cfg.ParseRunConfig()
		if err != nil {
			return err
		}
		run, err := plume.Configure(runCfg, current, diffusivity, registry)
		if err != nil {
			return err
		}

		endDay := runCfg.EndDate.Sub(runCfg.StartDate).Hours() / 24
		snaps, err := run.Prerender(context.Background(), plume.PrerenderConfig{
			EndDay:         endDay,
			FixedStep:      cfg.GetFloat64("fixed-step"),
			RecordInterval: cfg.GetFloat64("record-interval"),
			Progress: func(percent float64, message string) {
				fmt.Fprintf(os.Stderr, "\r%5.1f%%  %s", percent, message)
			},
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		out := os.Stdout
		if path := cfg.GetString("output-file"); path != "" {
			f, ferr := os.Create(path)
			if ferr != nil {
				return ferr
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	if err := cfg.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(plume.ExitCode(err))
	}
}
