// Package main is the single-binary entrypoint for Sentinel, the hybrid
// treasury governance engine.
package main

import "github.com/sentinel-dao/sentinel/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
