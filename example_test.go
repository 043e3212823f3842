package main

import (
	"bytes"
	"strings"
	"testing"
)

func compileOpts() CompileOptions {
	return CompileOptions{Platform: OSLinux, ArenaBytes: ArenaSize, MaxErrors: 10}
}

// assertELF checks the artifact starts with the ELF64 magic this core
// always emits for a Linux target.
func assertELF(t *testing.T, artifact []byte) {
	t.Helper()
	if len(artifact) < 4 || !bytes.Equal(artifact[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		t.Fatalf("expected artifact to start with ELF magic, got % x", artifact[:min(8, len(artifact))])
	}
}

// decimalDivisorSignature is "mov rcx, 10" (REX.W + B9 + imm64), the
// instruction genPrintInt's div-by-10 loop sets up once per call. Its
// presence is a reliable proxy for "the decimal-conversion routine actually
// ran" without executing the compiled image.
var decimalDivisorSignature = []byte{0x48, 0xB9, 0x0A, 0, 0, 0, 0, 0, 0, 0}

// assertDecimalPrint checks that genPrintInt's routine was emitted.
func assertDecimalPrint(t *testing.T, artifact []byte) {
	t.Helper()
	if !bytes.Contains(artifact, decimalDivisorSignature) {
		t.Error("expected the decimal-conversion routine's div-by-10 setup to appear in the image")
	}
}

// TestCompileHelloWorldString: a bare string
// print produces a valid image with the literal text interned into
// .rodata.
func TestCompileHelloWorldString(t *testing.T) {
	src := []byte(`print/"hello, world"\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	if !bytes.Contains(artifact, []byte("hello, world\n")) {
		t.Error("expected the printed string (plus trailing newline) to appear in the image's .rodata")
	}
	if bytes.Contains(artifact, decimalDivisorSignature) {
		t.Error("a bare string literal print should never emit the decimal-conversion routine")
	}
}

// TestCompileVarStoreThenLoad: a typed variable
// is declared with an initializer and then read back by a print statement,
// which must print "42\n" -- checked here by confirming the
// decimal-conversion routine (not just the newline-only fallback) made it
// into the image.
func TestCompileVarStoreThenLoad(t *testing.T) {
	src := []byte("var.i-x-[42]\\\nprint/x\\")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	assertDecimalPrint(t, artifact)
}

// TestCompileArithmeticPrecedence: '*' binds
// tighter than '+', matching parseExpr/parseTerm's two-level grammar, and
// the printed result ("14\n") must go through decimal conversion rather
// than the string-literal path.
func TestCompileArithmeticPrecedence(t *testing.T) {
	src := []byte(`print/2+3*4\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	assertDecimalPrint(t, artifact)
}

// TestCompileForwardFunctionReferenceResolves: a
// call site preceding its function's definition must have its CALL fixed
// up once the definition is reached, leaving no pending fixups by the end
// of Generate.
func TestCompileForwardFunctionReferenceResolves(t *testing.T) {
	src := []byte("^greet/\\\n|greet| entry.can< print/\"hi\"\\ :>")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
}

// TestCompileUnresolvedForwardReferenceFails verifies the mirror image of
// the above: a call to a function that's never defined anywhere in the
// program must surface KindFixupUnresolvedAtFinal rather than silently
// producing an image with a dangling CALL target.
func TestCompileUnresolvedForwardReferenceFails(t *testing.T) {
	src := []byte(`^nope/\`)
	_, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err == nil {
		t.Fatal("expected an error for a call to an undefined function")
	}
	ce, ok := err.(CompilerError)
	if !ok {
		t.Fatalf("expected a CompilerError, got %T", err)
	}
	if !strings.Contains(ce.Message, string(KindFixupUnresolvedAtFinal)) {
		t.Errorf("expected message to mention %q, got %q", KindFixupUnresolvedAtFinal, ce.Message)
	}
}

// TestCompileTemporalWriteThenRead: a value
// written into the FUTURE zone via '>>' must be readable back via '<'
// without error.
func TestCompileTemporalWriteThenRead(t *testing.T) {
	src := []byte("5 >> x\\\nprint/<x\\")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
}

// TestCompileNestedDoBlocksArenaReset: nested
// action blocks must still compile to a single enter/exit pair per
// nesting level, with the bump-pointer rollback happening only once
// depth returns to zero (exercised structurally by arena_test.go; this
// checks the whole pipeline accepts nested do/ blocks without error).
func TestCompileNestedDoBlocksArenaReset(t *testing.T) {
	src := []byte("do/ do/ var.i-y-[9]\\ \\ \\")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
}

// TestCompileEmptyInputFails verifies driver.go's guard against a
// zero-length source file.
func TestCompileEmptyInputFails(t *testing.T) {
	_, err := Compile(nil, NewTarget(OSLinux), compileOpts())
	if err == nil {
		t.Fatal("expected an error for empty input")
	}
	ce, ok := err.(CompilerError)
	if !ok || !strings.Contains(ce.Message, string(KindEmptyInput)) {
		t.Errorf("expected message to mention %q, got %v (%T)", KindEmptyInput, err, err)
	}
}

// TestCompileOversizedInputFails verifies the maxSourceBytes cap: a
// one-pass compiler with fixed-capacity pools has no business accepting
// arbitrarily large programs.
func TestCompileOversizedInputFails(t *testing.T) {
	src := bytes.Repeat([]byte("#"), maxSourceBytes+1)
	_, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err == nil {
		t.Fatal("expected an error for input exceeding maxSourceBytes")
	}
}

// TestCompileWindowsTargetProducesPEImage checks the same source compiles
// to a PE32+ image (MZ magic) when targeting Windows, exercising
// container_pe.go's BuildFixedImportTable/WritePEHeader path end to end.
func TestCompileWindowsTargetProducesPEImage(t *testing.T) {
	src := []byte(`print/"hi"\`)
	opts := compileOpts()
	opts.Platform = OSWindows
	artifact, err := Compile(src, NewTarget(OSWindows), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(artifact) < 2 || artifact[0] != 'M' || artifact[1] != 'Z' {
		t.Fatalf("expected a PE image starting with MZ, got % x", artifact[:min(8, len(artifact))])
	}
}

// TestCompileMacOSTargetFails mirrors TestCompileWindowsTargetProducesPEImage
// for the one target that is documented as unimplemented: a
// macOS Mach-O image. Compile must fail with KindPlatformUnsupported rather
// than silently falling through to the ELF64 writer.
func TestCompileMacOSTargetFails(t *testing.T) {
	src := []byte(`print/"hi"\`)
	opts := compileOpts()
	opts.Platform = OSMacOS
	_, err := Compile(src, NewTarget(OSMacOS), opts)
	if err == nil {
		t.Fatal("expected an error for a macOS target")
	}
	ce, ok := err.(CompilerError)
	if !ok {
		t.Fatalf("expected a CompilerError, got %T", err)
	}
	if !strings.Contains(ce.Message, string(KindPlatformUnsupported)) {
		t.Errorf("expected message to mention %q, got %q", KindPlatformUnsupported, ce.Message)
	}
}

// TestCompileFunctionParameterDoubling: a parameter declared between the
// pipes binds to the first argument register and is readable inside the
// body like any other variable; the call's result feeds the print's
// decimal-conversion routine.
func TestCompileFunctionParameterDoubling(t *testing.T) {
	src := []byte("print/^double/21\\\n|double n| entry.can< n+n\\ :>")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	assertDecimalPrint(t, artifact)
}

// TestCompileFunctionBodyIsJumpedOver checks the definition emits a jump
// carrying straight-line control flow past the inline body: the byte right
// before the recorded entry must be the tail of an E9 rel32, or falling
// through a definition would execute the body an extra time.
func TestCompileFunctionBodyIsJumpedOver(t *testing.T) {
	src := []byte("|noop| entry.can< 0\\ :>")
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(artifact, []byte{0xE9}) {
		t.Error("expected an E9 jump over the inline function body")
	}
}

// TestCompileInlineAsmStatement checks `asm/"..."\` copies its hex pairs
// into the image verbatim.
func TestCompileInlineAsmStatement(t *testing.T) {
	src := []byte(`asm/"90 90 90 90 90 90 90"\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(artifact, bytes.Repeat([]byte{0x90}, 7)) {
		t.Error("expected the literal NOP run from the asm statement to appear in the image")
	}
}

// TestCompileMixedIntFloatArithmetic exercises the operand-promotion path:
// an integer multiplied by a float literal must compile without error (the
// integer side converts to double and the printed result truncates).
func TestCompileMixedIntFloatArithmetic(t *testing.T) {
	src := []byte(`print/3*1.5\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	assertDecimalPrint(t, artifact)
}

// TestCompileNegatedFloatLiteral exercises the float sign-flip path: the
// unary minus on a double must emit the xorpd sequence rather than
// silently dropping the negation.
func TestCompileNegatedFloatLiteral(t *testing.T) {
	src := []byte(`var.f-z-[-2.5]\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	xorpd := []byte{0x66, 0x0F, 0x57, 0xC1}
	if !bytes.Contains(artifact, xorpd) {
		t.Error("expected the xorpd sign-flip to appear in the image")
	}
}

// TestCompileSqrtIntrinsic checks `^sqrt/ x \` dispatches to the inline
// sqrtsd emitter rather than the function table.
func TestCompileSqrtIntrinsic(t *testing.T) {
	src := []byte(`print/^sqrt/16\`)
	artifact, err := Compile(src, NewTarget(OSLinux), compileOpts())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertELF(t, artifact)
	sqrtsd := []byte{0xF2, 0x0F, 0x51, 0xC8} // sqrtsd xmm1, xmm0
	if !bytes.Contains(artifact, sqrtsd) {
		t.Error("expected the hardware sqrtsd to appear in the image")
	}
}
