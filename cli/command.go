package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kvesta/imagescan/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rootCmd = &cobra.Command{
		Use:   "imagescan [OPTIONS]",
		Short: "Docker image inspection and Debian package vulnerability scan",
		Long: `Imagescan describes a local Docker image, checks it against the official Docker Hub
images and looks its Debian packages up in the OSV advisory database`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	cfgFile string
	debug   bool

	settings *config.Settings
)

func Execute() error {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default ./imagescan.yaml)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringP("output", "o", "", "output file location, \"output\" for ./output/<date>")
	flags.String("format", config.FormatTable, "output format: table, json or yaml")
	flags.String("metrics-textfile", "", "write lookup metrics in the textfile collector format")

	_ = viper.BindPFlag("output.file", flags.Lookup("output"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))
	_ = viper.BindPFlag("metrics.textfile", flags.Lookup("metrics-textfile"))

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Version)
		},
	}

	scan()
	describe()
	official()
	cache()

	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := config.Load(cfgFile); err != nil {
		return err
	}

	s, err := config.Current()
	if err != nil {
		return err
	}
	settings = s

	level, err := log.ParseLevel(s.Log.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", s.Log.Level)
		level = log.InfoLevel
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	return nil
}
