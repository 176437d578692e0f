// Package main is the entry point for the scoutmetrics CLI tool, which collects
// robotics match-scouting submissions and computes team and event metrics.
package main

import "github.com/pable/go-scout-metrics/cmd"

func main() {
	cmd.Execute()
}
