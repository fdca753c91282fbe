// Package main is the entry point for the tempo CLI.
package main

import "github.com/tempo-ml/tempo/cmd"

func main() {
	cmd.Execute()
}
