/*
Copyright 2025 Vantage ERP Authors.

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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vantage-erp/vantage"
	"github.com/vantage-erp/vantage/config"
	"github.com/vantage-erp/vantage/database"
)

// Vantage represents the CLI application, encapsulating the root Cobra command.
type Vantage struct {
	cmd *cobra.Command
}

// vantageInstance holds the Vantage instance and its configuration so that
// subcommands can share both after preRun has wired them.
type vantageInstance struct {
	vantage *vantage.Vantage
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the Vantage instance before
// any command runs.
func preRun(app *vantageInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("vantage.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newVantage, err := setupVantage(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.vantage = newVantage
		app.cnf = cnf

		return nil
	}
}

// setupVantage creates and initializes a new Vantage instance from the
// provided configuration, connecting the data source in the process.
func setupVantage(cfg *config.Configuration) (*vantage.Vantage, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newVantage, err := vantage.NewVantage(db)
	if err != nil {
		return nil, fmt.Errorf("error creating vantage: %v", err)
	}
	return newVantage, nil
}

// NewCLI creates the command-line interface for the Vantage application.
func NewCLI() *Vantage {
	var configFile string
	v := &vantageInstance{}

	var rootCmd = &cobra.Command{
		Use:   "vantage",
		Short: "Trading back-office core",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./vantage.json", "Configuration file for vantage")

	rootCmd.PersistentPreRunE = preRun(v)

	rootCmd.AddCommand(configCommands())
	rootCmd.AddCommand(migrateCommands(v))

	return &Vantage{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Vantage) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
