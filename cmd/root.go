package cmd

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/logger"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "pianofalls",
	Short: "Falling-notes piano practice",
	Long: `Loads MIDI and MusicXML scores into a falling-notes timeline and
keeps it in sync with what you play.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logger.Init(logLevel); err != nil {
			return err
		}
		if dsn := constants.GetSentryDSN(); dsn != "" {
			if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
				log.Warn("sentry disabled", "err", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		sentry.Flush(2 * time.Second)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", constants.GetLogLevel(), "debug, info, warn or error")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
