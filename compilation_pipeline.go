// compilation_pipeline.go - explicit compilation stages with validation:
// Init -> Parse -> Resolve -> Codegen -> Fixup -> Container -> Complete,
// a single straight-line walk with no second pass, because there is no
// forward-reference problem left once function-call fixups are resolved
// against functable.go as soon as each definition is reached.
package main

import (
	"fmt"
	"os"
)

// CompilationStage represents a stage in the single-pass pipeline.
type CompilationStage int

const (
	StageInit CompilationStage = iota
	StageParse
	StageResolve
	StageCodegen
	StageFixup
	StageContainer
	StageComplete
)

func (s CompilationStage) String() string {
	switch s {
	case StageInit:
		return "Init"
	case StageParse:
		return "Parse"
	case StageResolve:
		return "Resolve"
	case StageCodegen:
		return "Codegen"
	case StageFixup:
		return "Fixup"
	case StageContainer:
		return "Container"
	case StageComplete:
		return "Complete"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// CompilationPipeline tracks the current stage and validates transitions.
// Resolve and Codegen happen interleaved in practice (codegen.go declares
// and looks up symbols as it walks), so AdvanceTo treats them as a single
// hop from Parse; the stage still exists for diagnostics to name.
type CompilationPipeline struct {
	currentStage CompilationStage
	stages       []CompilationStage
}

func NewCompilationPipeline() *CompilationPipeline {
	return &CompilationPipeline{
		currentStage: StageInit,
		stages:       []CompilationStage{StageInit},
	}
}

var pipelineTransitions = map[CompilationStage]CompilationStage{
	StageInit:      StageParse,
	StageParse:     StageCodegen,
	StageCodegen:   StageFixup,
	StageFixup:     StageContainer,
	StageContainer: StageComplete,
}

func (cp *CompilationPipeline) AdvanceTo(stage CompilationStage) {
	next, known := pipelineTransitions[cp.currentStage]
	if !known || next != stage {
		fmt.Fprintf(os.Stderr, "ERROR: invalid stage transition: %s -> %s\n", cp.currentStage, stage)
		panic(fmt.Sprintf("invalid compilation stage transition: %s -> %s", cp.currentStage, stage))
	}

	cp.currentStage = stage
	cp.stages = append(cp.stages, stage)

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "PIPELINE: advanced to stage: %s\n", stage)
	}
}

func (cp *CompilationPipeline) CurrentStage() CompilationStage {
	return cp.currentStage
}

// ValidateStage panics if the pipeline isn't where operation expects it to
// be; the driver calls this before any phase that would corrupt state if
// run out of order (e.g. patching fixups before codegen has finished).
func (cp *CompilationPipeline) ValidateStage(expected CompilationStage, operation string) {
	if cp.currentStage != expected {
		panic(fmt.Sprintf("invalid operation %q at stage %s, expected %s", operation, cp.currentStage, expected))
	}
}

// Checkpoint logs a named point in the pipeline under VerboseMode.
func (cp *CompilationPipeline) Checkpoint(name string) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "PIPELINE CHECKPOINT: %s at stage %s\n", name, cp.currentStage)
	}
}
