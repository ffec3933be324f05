package cli

import (
	"github.com/kvesta/imagescan/internal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func scan() {
	var opts internal.Options

	scanCmd := &cobra.Command{
		Use:   "scan IMAGE",
		Short: "Analyse a local image",
		Long: `Examples:
  # Describe a local image
  $ imagescan scan nginx:latest

  # Check whether the image is an official Docker Hub image
  $ imagescan scan python:3.9-slim --check-official

  # Scan the Debian packages for known vulnerabilities
  $ imagescan scan debian:10 --check-vulns

  # Use a remote Docker host and save a JSON report
  $ DOCKER_HOST=<DOCKER host> imagescan scan debian:10 --check-vulns -o report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := internal.NewAnalyzer(ctx, settings, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return internal.DoScan(ctx, a, args[0], opts)
		},
	}

	flags := scanCmd.Flags()
	flags.BoolVar(&opts.CheckOfficial, "check-official", false, "check the image against the official Docker Hub images")
	flags.BoolVar(&opts.CheckVulns, "check-vulns", false, "check system packages for vulnerabilities (dpkg + OSV)")
	flags.BoolVar(&opts.NoCache, "no-cache", false, "skip the local advisory cache")
	flags.Int("concurrency", 8, "maximum advisory lookups in flight")

	_ = viper.BindPFlag("scan.concurrency", flags.Lookup("concurrency"))

	rootCmd.AddCommand(scanCmd)
}
