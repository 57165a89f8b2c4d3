// Package main provides the voiceauthctl CLI tool.
//
// Usage:
//
//	voiceauthctl [flags] <command> [args]
//
// Commands:
//
//	train    - Train the voice or language classifiers from labeled MP3s
//	dataset  - Initialize and inspect the training data layout
//	analyze  - Extract and print acoustic features for a single MP3
package main

import (
	"fmt"
	"os"

	"voiceauth-server/cmd/voiceauthctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
