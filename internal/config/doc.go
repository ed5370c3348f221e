// Package config loads job files and turns them into a wired sequencer.
//
// A job file names the event range, the base seed, the worker count, the
// abort and barcode policies, and an ordered list of stages with their
// parameters. Job files are YAML (.yaml, .yml) or CUE (.cue); CUE files are
// checked against the embedded schema before decoding. Environment
// variables with the EVSEQ_ prefix override file values, and command-line
// flags override both.
//
// Example:
//
//	events: 100
//	seed: 42
//	workers: 4
//	stages:
//	  - type: particle_gun
//	    params: {output: particles, count: 10}
//	  - type: secondary_spawner
//	    params: {input: particles, output: secondaries, mean: 2}
//	  - type: digest
//	    params: {inputs: [particles, secondaries]}
package config
