package main

import (
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/cmd"
)

// main is the entry point for the sda CLI.
func main() {
	cmd.Execute()
}
