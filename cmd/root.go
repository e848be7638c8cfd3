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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/valpere/phrasecheck/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "phrasecheck",
	Short: "Check machine translations phrase by phrase against the web",
	Long: `A CLI application that translates text with several translation services,
parses every translated sentence and checks whether its phrases are
"meaningful": used the same way in sentences found on the web.

Phrases that are not corroborated come with the most similar web sentences
as suggestions.

Use "phrasecheck check --help" for checking options.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindCommandFlags(cmd); err != nil {
			return err
		}
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

type flagBinding struct {
	key, flag string
}

// flagBindings holds each command's key bindings until it runs. Viper keeps
// one flag per key, so commands sharing a key are bound only when executed.
var flagBindings = map[*cobra.Command][]flagBinding{}

// bindFlag maps a command flag onto a configuration key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if cmd.Flags().Lookup(flag) == nil {
		panic(fmt.Sprintf("bind %s: no such flag on %s", flag, cmd.Name()))
	}
	flagBindings[cmd] = append(flagBindings[cmd], flagBinding{key: key, flag: flag})
}

func bindCommandFlags(cmd *cobra.Command) error {
	for _, b := range flagBindings[cmd] {
		if err := v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return fmt.Errorf("bind %s: %w", b.flag, err)
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().String("db", "phrasecheck.db", "Database path for report history and the search cache")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	if err := v.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db")); err != nil {
		panic(err)
	}
	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
}
