// Package main is the entry point for the zschema command.
package main

func main() {
	Execute()
}
