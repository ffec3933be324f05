package cli

import (
	"github.com/kvesta/imagescan/internal"
	"github.com/kvesta/imagescan/pkg/registry"

	"github.com/spf13/cobra"
)

func describe() {
	describeCmd := &cobra.Command{
		Use:   "describe IMAGE",
		Short: "Print the metadata of a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := internal.NewAnalyzer(ctx, settings, internal.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			return internal.DoDescribe(ctx, a, args[0])
		},
	}

	rootCmd.AddCommand(describeCmd)
}

func official() {
	officialCmd := &cobra.Command{
		Use:   "official IMAGE",
		Short: "Check an image reference against the official Docker Hub images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := &internal.Analyzer{
				Settings: settings,
				Registry: registry.NewClient(settings.Registry.URL, settings.Registry.Timeout),
				Out:      cmd.OutOrStdout(),
			}

			return internal.DoOfficial(cmd.Context(), a, args[0])
		},
	}

	rootCmd.AddCommand(officialCmd)
}

func cache() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local advisory cache",
		Args:  NoArgs,
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove every cached advisory",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return internal.DoPurgeCache(settings)
		},
	}

	cacheCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
