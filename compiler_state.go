// compiler_state.go - central state management for compilation. The
// container writers are plain methods on ExecutableBuilder
// (container_elf.go/container_pe.go) and the register allocator lives
// inside Codegen, so CompilerState's only job is to carry
// target/options/pipeline state through driver.go.
package main

import "fmt"

// CompilerState bundles the long-lived state driver.go threads through
// Compile: the resolved target/options and the stage tracker. The
// balanced-push/pop stack discipline tracker lives inside Codegen, which
// is the only phase that emits stack traffic.
type CompilerState struct {
	Target   Target
	Options  CompileOptions
	Pipeline *CompilationPipeline
}

func NewCompilerState(target Target, options CompileOptions) *CompilerState {
	return &CompilerState{
		Target:   target,
		Options:  options,
		Pipeline: NewCompilationPipeline(),
	}
}

// GetBaseAddr returns the virtual base address of the target container
// format: memlayout.go's elfBaseAddr for Linux/macOS, container_pe.go's
// peImageBase for Windows.
func (cs *CompilerState) GetBaseAddr() uint64 {
	if cs.Target.OS() == OSWindows {
		return peImageBase
	}
	return uint64(elfBaseAddr)
}

// GetSummary returns a one-shot human-readable dump of compiler state,
// used by the CLI's verbose path.
func (cs *CompilerState) GetSummary() string {
	return fmt.Sprintf(
		"CompilerState:\n"+
			"  Stage: %v\n"+
			"  Target: %s/%s\n"+
			"  BaseAddr: 0x%x\n",
		cs.Pipeline.CurrentStage(), cs.Target.Arch(), cs.Target.OS(), cs.GetBaseAddr(),
	)
}
