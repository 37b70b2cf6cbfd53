//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

// Default runs vet and the tests.
var Default = Check

// Check runs Vet then Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Test runs the unit tests with the race detector.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// TestNoGPU runs the tests without the wgpu backend.
func TestNoGPU() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "nogpu", "./..."), withStream())
	return err
}

// Vet runs go vet.
func Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

type Build mg.Namespace

// All builds every package.
func (Build) All() error {
	_, err := executeCmd("go", withArgs("build", "./..."), withStream())
	return err
}

// Commands installs life and lifesnap into bin/.
func (Build) Commands() error {
	for _, name := range []string{"life", "lifesnap"} {
		if _, err := executeCmd("go", withArgs("build", "-o", "bin/"+name, "./cmd/"+name), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot renders 200 generations on the software backend to life.png.
func Snapshot() error {
	mg.Deps(Build.Commands)
	fmt.Println("Rendering snapshot...")
	_, err := executeCmd("bin/lifesnap",
		withArgs("-backend", "software", "-generations", "200", "-output", "life.png"),
		withStream())
	return err
}
