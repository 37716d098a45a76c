// Package main is the entry point for the educhat command line tool.
package main

func main() {
	Execute()
}
