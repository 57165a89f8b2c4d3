package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voiceauth-server/pkg/language"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the training data layout",
}

var datasetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the training data directory skeleton",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := []string{
			filepath.Join(dataDir, humanDirName),
			filepath.Join(dataDir, aiDirName),
		}
		for _, label := range language.Labels {
			dirs = append(dirs, filepath.Join(dataDir, languagesDirName, label))
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			fmt.Printf("Created %s\n", dir)
		}

		readme := filepath.Join(dataDir, "README.md")
		if _, err := os.Stat(readme); os.IsNotExist(err) {
			content := `# Training data

Place MP3 recordings in the class directories:

- human/      real human speech
- ai/         synthesized speech
- languages/  one subdirectory per language

Then run:

    voiceauthctl train voice --data-dir ` + dataDir + `
    voiceauthctl train language --data-dir ` + dataDir + `
`
			if err := os.WriteFile(readme, []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", readme, err)
			}
			fmt.Printf("Created %s\n", readme)
		}
		return nil
	},
}

var datasetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sample counts per class",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Voice classes:")
		for _, name := range []string{humanDirName, aiDirName} {
			count, err := countMP3s(filepath.Join(dataDir, name))
			if err != nil {
				return err
			}
			fmt.Printf("  %-12s %d\n", name, count)
		}

		fmt.Println("Languages:")
		for _, label := range language.Labels {
			count, err := countMP3s(filepath.Join(dataDir, languagesDirName, label))
			if err != nil {
				return err
			}
			fmt.Printf("  %-12s %d\n", label, count)
		}
		return nil
	},
}

func init() {
	datasetCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "training_data", "directory of labeled MP3 recordings")
	datasetCmd.AddCommand(datasetInitCmd)
	datasetCmd.AddCommand(datasetStatusCmd)
}

// countMP3s returns the number of MP3 files directly under dir, or zero when
// the directory does not exist yet.
func countMP3s(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			count++
		}
	}
	return count, nil
}
