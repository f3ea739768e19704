//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups targets that drive the built CLI.
type Pipeline mg.Namespace

func binary() string { return filepath.Join(binDir, binName) }

// Run builds the CLI and runs the pipeline once for topic.
func (Pipeline) Run(topic string) error {
	mg.Deps(Init, Build)
	return sh.RunV(binary(), "run", topic)
}

// Serve builds the CLI and starts the HTTP front end.
func (Pipeline) Serve() error {
	mg.Deps(Init, Build)
	return sh.RunV(binary(), "serve")
}

// Runs lists the most recent recorded runs.
func (Pipeline) Runs() error {
	mg.Deps(Build)
	return sh.RunV(binary(), "runs", "list")
}
