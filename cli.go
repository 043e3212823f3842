// cli.go - command-line entry point:
//
//	tempoc <input-path> <output-path> [--platform linux|windows|macos] [--windows] [-v]
//
// Exit codes: 0 on success, 1 on any error (usage, read failure, parse
// failure, codegen overflow, unresolved fixups, write failure). All
// diagnostics go to stderr as "Error: <what>".
package main

import (
	"fmt"
	"os"
)

const usageString = "usage: tempoc <input-path> <output-path> [--platform linux|windows|macos] [--windows] [-v]"

// RunCLI parses args, drives the compiler, and writes the artifact. It
// returns the process exit code.
func RunCLI(args []string) int {
	for _, a := range args {
		if a == "--version" {
			fmt.Println(versionString)
			return 0
		}
	}
	inputPath, outputPath, targetOS, verbose, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		fmt.Fprintln(os.Stderr, usageString)
		return 1
	}
	VerboseMode = verbose

	source, err := os.ReadFile(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fatalf("io-open: %s", err)
		}
		return fatalf("io-read: %s", err)
	}

	opts := ResolveOptions(CompileOptions{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Platform:   targetOS,
		Verbose:    verbose,
	})

	target := NewTarget(targetOS)
	artifact, cerr := Compile(source, target, opts)
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "Error: "+cerr.Error())
		return 1
	}

	if err := os.WriteFile(outputPath, artifact, 0o755); err != nil {
		return fatalf("io-write: %s", err)
	}
	return 0
}

// parseArgs splits args into the two required positionals and the
// recognized flags. --windows is a shorthand for --platform windows.
func parseArgs(args []string) (inputPath, outputPath string, targetOS OS, verbose bool, err error) {
	targetOS = OSLinux
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--platform":
			if i+1 >= len(args) {
				return "", "", 0, false, fmt.Errorf("--platform requires an argument")
			}
			i++
			targetOS, err = ParseOS(args[i])
			if err != nil {
				return "", "", 0, false, err
			}
		case "--windows":
			targetOS = OSWindows
		case "-v", "--verbose":
			verbose = true
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) != 2 {
		return "", "", 0, false, fmt.Errorf("expected <input-path> and <output-path>, got %d positional argument(s)", len(positional))
	}
	return positional[0], positional[1], targetOS, verbose, nil
}
