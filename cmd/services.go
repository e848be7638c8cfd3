/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/phrasecheck/internal/orchestrator"
)

var servicesLanguages bool

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Check which configured translation services are reachable",
	Long: `Ask every configured translation service whether it is reachable and
which languages it supports. "check" runs the same check before translating
and skips the services reported as unavailable here.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := buildServices(cfg)
		if err != nil {
			return err
		}
		orch := orchestrator.New(services, orchestrator.OrchestratorConfig{
			Timeout:        cfg.Translate.Timeout,
			SkipValidation: true,
			Logger:         logger,
		})

		target := cfg.Translate.Target
		statuses := orch.Availability(cmd.Context())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SERVICE\tSTATUS\tLANGUAGES\tTARGET %s\n", strings.ToUpper(target))
		available := 0
		for _, st := range statuses {
			status := "available"
			if !st.Available() {
				status = "unavailable: " + st.Err.Error()
			} else {
				available++
			}

			langs := "-"
			switch {
			case st.LanguagesErr != nil:
				langs = "unknown: " + st.LanguagesErr.Error()
			case servicesLanguages && len(st.Languages) > 0:
				langs = strings.Join(st.Languages, ",")
			case len(st.Languages) > 0:
				langs = fmt.Sprintf("%d", len(st.Languages))
			}

			supports := "-"
			if st.Available() {
				supports = "no"
				if st.Supports(target) {
					supports = "yes"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Service, status, langs, supports)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Checked %s: %d of %d available\n",
			strings.Join(orch.Services(), ", "), available, len(statuses))
		if available == 0 {
			return orchestrator.ErrNoServices
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)

	servicesCmd.Flags().BoolVarP(&servicesLanguages, "languages", "l", false, "List every supported language instead of the count")
	servicesCmd.Flags().StringSlice("services", []string{"google", "microsoft", "yandex"}, "Translation services to check (comma-separated)")
	servicesCmd.Flags().StringP("target", "t", "en", "Target language code")

	bindFlag(servicesCmd, "translate.services", "services")
	bindFlag(servicesCmd, "translate.target", "target")
}
