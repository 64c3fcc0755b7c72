// Package cmd implements the command-line interface of dLock. The tool runs a
// participant without a network: frames of the lock server are read from a
// script and the frames the participant would send are printed.
//
// The package is organized into several subpackages:
//
//   - replay: Replays a script of local lock steps and server frames against a
//     client lock manager and prints every outbound frame and state change
//   - states: Prints the greediness state table with the answers of every query
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dlock -help for a list of all commands.
package cmd
