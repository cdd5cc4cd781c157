// Package cli implements coverctl, the operations CLI for the partner
// service: migrations, schema checks, seeding and pipeline stats.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coverctl [command] [flags]",
	Short: "coverctl - operations CLI for the Coverlane partner service",
	Long: `coverctl administers the Coverlane partner store. It applies schema
migrations, verifies the processing schema, seeds partners and products from
scraper exports, and reports pipeline statistics.

Examples:
  # Apply pending migrations and verify the schema
  coverctl migrate --verify

  # Seed partners and products from a YAML manifest
  coverctl seed -f partners.yaml

  # Show processing stats for one partner
  coverctl stats --partner 0198a2bc-7c29-7f60-ae1e-3c2d4f5a6b7c`,
	PersistentPreRun: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "partnersrv.conf", "Path to the partner service configuration file")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVerifySchemaCmd())
	rootCmd.AddCommand(newResetPasswordCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newStatsCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			kv := map[string]string{
				"error": err.Error(),
			}
			printJSON(kv)
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads the service configuration before command
// execution. The version command works without one.
func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return
	}

	if err := config.LoadConfig(configFile); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found. Point coverctl at the partner service config with --config.\n", configFile)
		} else {
			fmt.Printf("%s\n", err.Error())
		}
		os.Exit(1)
	}
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of coverctl",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				kv := map[string]string{
					"version":     getCLIVersion(),
					"api_version": partnercommon.ApiVersion,
				}
				printJSON(kv)
			} else {
				cmd.Printf("coverctl %s\n", getCLIVersion())
				cmd.Printf("API version: %s\n", partnercommon.ApiVersion)
			}
		},
	}
}

// printJSON prints the given map as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v" + partnercommon.ServerVersion
}
