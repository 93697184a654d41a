package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bitfantasy/vgp/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "vgp",
	Short: "VGP compliance workflow engine",
	Long:  `vgp runs the periodic-inspection (VGP) workflow service: checklists, non-conformities, corrective actions and due dates.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 加载 .env 文件
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: %s not found, using environment variables", envFile)
		}
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vgp %s (built %s)\n", Version, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.GetEnvOrDefault("VGP_ENV_FILE", ".env"), "dotenv file loaded before the config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
