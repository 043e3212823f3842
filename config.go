// config.go - option resolution: flags override environment, environment
// overrides built-in defaults.
package main

import "github.com/xyproto/env/v2"

// VerboseMode gates the hex-trace logging scattered through emit.go,
// container_elf.go, and the pipeline/stack trackers. Set once from
// CompileOptions.Verbose by the CLI before Compile runs.
var VerboseMode bool

// CompileOptions carries every tunable the driver needs. Flags parsed in
// main.go take precedence; anything left at its zero value is filled in
// from the environment and finally from DefaultCompileOptions.
type CompileOptions struct {
	InputPath  string
	OutputPath string
	Platform   OS
	Verbose    bool

	ArenaBytes int
	MaxErrors  int
}

// DefaultCompileOptions mirrors the persisted state layout of the design's
// memory table (memlayout.go) and a conservative error cap.
var DefaultCompileOptions = CompileOptions{
	Platform:   OSLinux,
	ArenaBytes: ArenaSize,
	MaxErrors:  10,
}

// ResolveOptions layers environment overrides onto defaults, then lets
// already-set flag values win. Call after flag.Parse().
func ResolveOptions(opts CompileOptions) CompileOptions {
	resolved := DefaultCompileOptions

	resolved.ArenaBytes = env.Int("TEMPOC_ARENA_BYTES", resolved.ArenaBytes)
	resolved.MaxErrors = env.Int("TEMPOC_MAX_ERRORS", resolved.MaxErrors)
	resolved.Verbose = env.Bool("TEMPOC_VERBOSE")

	if opts.InputPath != "" {
		resolved.InputPath = opts.InputPath
	}
	if opts.OutputPath != "" {
		resolved.OutputPath = opts.OutputPath
	}
	// opts.Platform always carries a real value by the time it reaches here
	// (cli.go defaults it to OSLinux before parsing flags), so there's no
	// "unset" sentinel to guard against the way InputPath/OutputPath have.
	resolved.Platform = opts.Platform
	if opts.Verbose {
		resolved.Verbose = true
	}
	if opts.ArenaBytes != 0 {
		resolved.ArenaBytes = opts.ArenaBytes
	}
	if opts.MaxErrors != 0 {
		resolved.MaxErrors = opts.MaxErrors
	}

	return resolved
}
