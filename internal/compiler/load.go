package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadProgram compiles the program at path. A file is compiled on its own;
// a directory is loaded as one CUE instance, so a program may be split
// across files.
func LoadProgram(path string) (*ProgramFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat program: %w", err)
	}

	ctx := cuecontext.New()
	var value cue.Value

	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances in %s", path)
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, formatCUEError(inst.Err)
		}
		value = ctx.BuildInstance(inst)
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read program: %w", err)
		}
		value = ctx.CompileBytes(src, cue.Filename(path))
	}

	spec, err := CompileProgram(value)
	if err != nil {
		return nil, err
	}
	return &ProgramFile{Path: path, Spec: spec}, nil
}

// CompileSource compiles program source held in memory. filename is used
// only for error positions.
func CompileSource(filename, src string) (*ProgramFile, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	spec, err := CompileProgram(value)
	if err != nil {
		return nil, err
	}
	return &ProgramFile{Path: filename, Spec: spec}, nil
}
