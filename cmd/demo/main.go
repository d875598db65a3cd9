// demo runs the support workflow in-process against the configured flag
// source and LLM backend.
//
// Usage:
//
//	demo run --user=<id> --type=<critical|feature|integration|quick> --message=<text>
//	demo batch
//	demo flags --user=<id> --type=<type>
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
