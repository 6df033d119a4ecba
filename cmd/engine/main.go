// Package main is the entry point for the flowforge engine CLI.
package main

func main() {
	Execute()
}
