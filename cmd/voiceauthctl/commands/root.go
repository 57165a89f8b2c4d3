package commands

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voiceauth-server/pkg/version"
)

var (
	modelDir string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "voiceauthctl",
	Short: "Voice authenticity model management",
	Long: `voiceauthctl manages the models behind the voice detection service.

Train the voice and language classifiers from directories of labeled MP3
recordings, inspect the training data layout, or analyze a single file to
see the acoustic features the classifiers operate on.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", "models", "directory for model artifacts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// cliLogger keeps library log output off stdout so command output stays clean.
func cliLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}
	return logger
}
