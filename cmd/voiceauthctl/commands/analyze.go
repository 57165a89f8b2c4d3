package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voiceauth-server/pkg/audio"
	"voiceauth-server/pkg/detection"
	"voiceauth-server/pkg/features"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.mp3>",
	Short: "Extract and classify a single recording",
	Long: `Decode an MP3 file, print its acoustic feature vector, and run both
classifiers against it. Models are loaded from the model directory,
falling back to synthetically bootstrapped ones when no trained
artifacts exist.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		sig, err := audio.DecodeMP3(data)
		if err != nil {
			return err
		}

		extractor := features.NewExtractor()
		featureMap, err := extractor.VoiceFeatures(sig)
		if err != nil {
			return err
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("Duration: %.2fs at %d Hz\n\n", sig.Duration(), sig.SampleRate)
		fmt.Println("Voice features:")
		for _, name := range features.VoiceFeatureNames {
			fmt.Printf("  %-22s %12.6f\n", name, featureMap[name])
		}

		pipeline := detection.NewPipeline(cliLogger(), modelDir)
		if err := pipeline.EnsureReady(); err != nil {
			return err
		}

		result, err := pipeline.Detect(data, "")
		if err != nil {
			return err
		}

		fmt.Printf("\nClassification: %s (confidence %.4f)\n", result.Classification, result.Confidence)
		fmt.Printf("Decision path: %s\n", result.Band)
		fmt.Printf("Language: %s (confidence %.4f)\n", result.Language, result.LanguageConfidence)
		fmt.Printf("Explanation: %s\n", result.Explanation)
		return nil
	},
}
