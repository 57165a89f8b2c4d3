package commands

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voiceauth-server/pkg/audio"
	"voiceauth-server/pkg/features"
	"voiceauth-server/pkg/language"
	"voiceauth-server/pkg/voice"
)

const (
	humanDirName     = "human"
	aiDirName        = "ai"
	languagesDirName = "languages"

	testFraction = 0.2
	splitSeed    = 42
)

var dataDir string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train classifiers from labeled MP3 recordings",
}

var trainVoiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Train the AI-vs-human voice classifier",
	Long: `Train the voice classifier from labeled recordings.

The data directory must contain two subdirectories of MP3 files:

  <data-dir>/human/  - recordings of real human speech
  <data-dir>/ai/     - recordings of synthesized speech

A held-out split is scored before saving, and the run is summarized in
<model-dir>/training_stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := features.NewExtractor()

		humanX, err := loadVectors(filepath.Join(dataDir, humanDirName), extractor.VoiceVector)
		if err != nil {
			return err
		}
		aiX, err := loadVectors(filepath.Join(dataDir, aiDirName), extractor.VoiceVector)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d human and %d AI samples\n", len(humanX), len(aiX))
		if len(humanX) < 2 || len(aiX) < 2 {
			return fmt.Errorf("need at least 2 samples per class, got %d human and %d AI", len(humanX), len(aiX))
		}

		var X [][]float64
		var y []int
		labels := []string{voice.LabelHuman, voice.LabelAI}
		for _, row := range humanX {
			X = append(X, row)
			y = append(y, 0)
		}
		for _, row := range aiX {
			X = append(X, row)
			y = append(y, 1)
		}

		trainIdx, testIdx := stratifiedSplit(y, 2, testFraction, splitSeed)
		trainX, trainY := subset(X, y, trainIdx)
		testX, testY := subset(X, y, testIdx)

		classifier := voice.NewClassifier(cliLogger(), modelDir)
		if err := classifier.Train(trainX, trainY); err != nil {
			return err
		}

		confusion := make([][]int, 2)
		for i := range confusion {
			confusion[i] = make([]int, 2)
		}
		correct := 0
		for i, vec := range testX {
			result, err := classifier.Predict(vec)
			if err != nil {
				return err
			}
			predicted := 0
			if result.Classification == voice.LabelAI {
				predicted = 1
			}
			confusion[testY[i]][predicted]++
			if predicted == testY[i] {
				correct++
			}
		}
		accuracy := float64(correct) / float64(len(testX))

		if err := classifier.Save(); err != nil {
			return err
		}

		printEvaluation(labels, confusion, accuracy, len(trainX), len(testX))
		return writeTrainingStats("voice", labels, confusion, accuracy, len(trainX), len(testX))
	},
}

var trainLanguageCmd = &cobra.Command{
	Use:   "language",
	Short: "Train the language identifier",
	Long: `Train the language identifier from labeled recordings.

The data directory must contain one subdirectory of MP3 files per
supported language:

  <data-dir>/languages/English/
  <data-dir>/languages/Tamil/
  ...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := features.NewExtractor()

		var X [][]float64
		var y []int
		for class, label := range language.Labels {
			rows, err := loadVectors(filepath.Join(dataDir, languagesDirName, label), extractor.LanguageVector)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d %s samples\n", len(rows), label)
			if len(rows) < 2 {
				return fmt.Errorf("need at least 2 samples for %s, got %d", label, len(rows))
			}
			for _, row := range rows {
				X = append(X, row)
				y = append(y, class)
			}
		}

		trainIdx, testIdx := stratifiedSplit(y, language.NumLanguages, testFraction, splitSeed)
		trainX, trainY := subset(X, y, trainIdx)
		testX, testY := subset(X, y, testIdx)

		detector := language.NewDetector(cliLogger(), modelDir)
		if err := detector.Train(trainX, trainY); err != nil {
			return err
		}

		classIndex := make(map[string]int, language.NumLanguages)
		for i, label := range language.Labels {
			classIndex[label] = i
		}
		confusion := make([][]int, language.NumLanguages)
		for i := range confusion {
			confusion[i] = make([]int, language.NumLanguages)
		}
		correct := 0
		for i, vec := range testX {
			label, _, err := detector.PredictVector(vec)
			if err != nil {
				return err
			}
			predicted := classIndex[label]
			confusion[testY[i]][predicted]++
			if predicted == testY[i] {
				correct++
			}
		}
		accuracy := float64(correct) / float64(len(testX))

		if err := detector.Save(); err != nil {
			return err
		}

		printEvaluation(language.Labels, confusion, accuracy, len(trainX), len(testX))
		return writeTrainingStats("language", language.Labels, confusion, accuracy, len(trainX), len(testX))
	},
}

func init() {
	trainCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "training_data", "directory of labeled MP3 recordings")
	trainCmd.AddCommand(trainVoiceCmd)
	trainCmd.AddCommand(trainLanguageCmd)
}

// loadVectors extracts one feature vector per MP3 file in dir. Files that
// fail to decode or extract are skipped with a warning.
func loadVectors(dir string, extract func(*audio.Signal) ([]float64, error)) ([][]float64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var rows [][]float64
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sig, err := audio.DecodeMP3(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		vec, err := extract(sig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		rows = append(rows, vec)
	}
	return rows, nil
}

// stratifiedSplit partitions sample indices so each class contributes the
// same fraction to the held-out set. Every class keeps at least one
// training sample and, when it has more than one, one test sample.
func stratifiedSplit(y []int, numClasses int, testFrac float64, seed int64) (trainIdx, testIdx []int) {
	rng := rand.New(rand.NewSource(seed))

	byClass := make([][]int, numClasses)
	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	for _, indices := range byClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		numTest := int(float64(len(indices)) * testFrac)
		if numTest == 0 && len(indices) > 1 {
			numTest = 1
		}
		if numTest >= len(indices) {
			numTest = len(indices) - 1
		}
		testIdx = append(testIdx, indices[:numTest]...)
		trainIdx = append(trainIdx, indices[numTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

func subset(X [][]float64, y []int, indices []int) ([][]float64, []int) {
	subX := make([][]float64, 0, len(indices))
	subY := make([]int, 0, len(indices))
	for _, i := range indices {
		subX = append(subX, X[i])
		subY = append(subY, y[i])
	}
	return subX, subY
}

func printEvaluation(labels []string, confusion [][]int, accuracy float64, trainN, testN int) {
	fmt.Printf("\nTrained on %d samples, evaluated on %d\n", trainN, testN)
	fmt.Printf("Accuracy: %.2f%%\n\n", accuracy*100)
	fmt.Println("Confusion matrix (rows = actual, columns = predicted):")
	fmt.Printf("%-14s", "")
	for _, label := range labels {
		fmt.Printf("%-14s", label)
	}
	fmt.Println()
	for i, label := range labels {
		fmt.Printf("%-14s", label)
		for j := range labels {
			fmt.Printf("%-14d", confusion[i][j])
		}
		fmt.Println()
	}
}

type trainingStats struct {
	Classifier      string    `json:"classifier"`
	TrainedAt       time.Time `json:"trained_at"`
	TrainSamples    int       `json:"train_samples"`
	TestSamples     int       `json:"test_samples"`
	Accuracy        float64   `json:"accuracy"`
	Classes         []string  `json:"classes"`
	ConfusionMatrix [][]int   `json:"confusion_matrix"`
}

func writeTrainingStats(classifier string, labels []string, confusion [][]int, accuracy float64, trainN, testN int) error {
	stats := trainingStats{
		Classifier:      classifier,
		TrainedAt:       time.Now().UTC(),
		TrainSamples:    trainN,
		TestSamples:     testN,
		Accuracy:        accuracy,
		Classes:         labels,
		ConfusionMatrix: confusion,
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(modelDir, classifier+"_training_stats.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("\nTraining summary written to %s\n", path)
	return nil
}
