package compiler

import (
	"fmt"

	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// StatusPolicy selects the value main returns when the program finishes.
type StatusPolicy int

const (
	// StatusConstant returns Config.StatusValue.
	StatusConstant StatusPolicy = iota
	// StatusCell returns the value of the current cell, letting the
	// program itself report an outcome.
	StatusCell
)

func (s StatusPolicy) String() string {
	switch s {
	case StatusConstant:
		return "constant"
	case StatusCell:
		return "cell"
	}
	return fmt.Sprintf("StatusPolicy(%d)", int(s))
}

// ParseStatusPolicy maps "constant" or "cell" to a StatusPolicy.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch s {
	case "constant", "":
		return StatusConstant, nil
	case "cell":
		return StatusCell, nil
	}
	return 0, errors.InvalidInput(errors.PhaseAssemble, fmt.Sprintf("unknown status policy %q (want constant or cell)", s))
}

// Config controls the shape of the generated module.
// Zero fields take their defaults, so a zero Config equals DefaultConfig().
type Config struct {
	// ExportName is the export name of the entry function. Default "main".
	ExportName string

	// ModuleName is recorded in the name section when EmitNames is set.
	ModuleName string

	// MemoryPages is the size of the imported tape memory in 64KiB pages.
	// The memory is declared with max equal to min, so it cannot grow.
	// Default 1.
	MemoryPages uint32

	// StartOffset is the initial data pointer. Default 0.
	StartOffset uint32

	// Status selects what main returns.
	Status StatusPolicy

	// StatusValue is returned by main under StatusConstant.
	StatusValue int32

	// EmitNames adds a "name" custom section naming the imports, the
	// entry function and the pointer local.
	EmitNames bool
}

const (
	DefaultExportName  = "main"
	DefaultMemoryPages = 1
)

// DefaultConfig returns the configuration used when Compile gets nil.
func DefaultConfig() *Config {
	return &Config{
		ExportName:  DefaultExportName,
		MemoryPages: DefaultMemoryPages,
		Status:      StatusConstant,
	}
}

// resolve returns a copy with defaults filled in, or an error for a
// configuration no module can satisfy.
func (c *Config) resolve() (Config, error) {
	var out Config
	if c != nil {
		out = *c
	}
	if out.ExportName == "" {
		out.ExportName = DefaultExportName
	}
	if out.MemoryPages == 0 {
		out.MemoryPages = DefaultMemoryPages
	}

	if uint64(out.MemoryPages) > wasm.MemoryMaxPages32 {
		return out, errors.InvalidInput(errors.PhaseAssemble,
			fmt.Sprintf("memory pages %d exceeds %d", out.MemoryPages, wasm.MemoryMaxPages32))
	}
	if tape := uint64(out.MemoryPages) * wasm.PageSize; uint64(out.StartOffset) >= tape {
		return out, errors.InvalidInput(errors.PhaseAssemble,
			fmt.Sprintf("start offset %d outside %d-byte tape", out.StartOffset, tape))
	}
	switch out.Status {
	case StatusConstant, StatusCell:
	default:
		return out, errors.InvalidInput(errors.PhaseAssemble, fmt.Sprintf("unknown status policy %d", int(out.Status)))
	}
	return out, nil
}
