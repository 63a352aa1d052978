//go:build mage

// Package main provides build targets for the item catalog using Mage.
//
// Usage:
//
//	mage build     Compile the itemcatalog binary to bin/
//	mage test      Run all tests
//	mage lint      Run go vet and golangci-lint
//	mage run       Migrate and serve with the development config
//	mage export    Write the catalog as JSON to bin/catalog.json
//	mage clean     Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "itemcatalog"
	binaryDir  = "bin"
)

var binaryPath = filepath.Join(binaryDir, binaryName)

// Build compiles the catalog binary to bin/. Cgo is required by go-sqlite3.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, "go", "build", "-v", "-o", binaryPath, ".")
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run migrates the database and starts the server.
func Run() error {
	mg.Deps(Build)
	if err := sh.RunV(binaryPath, "migrate"); err != nil {
		return err
	}
	return sh.RunV(binaryPath, "serve")
}

// Export writes the catalog to bin/catalog.json.
func Export() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath, "export", "--format", "json", "--output", filepath.Join(binaryDir, "catalog.json"))
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
