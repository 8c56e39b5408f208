package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/qcase/internal/ir"
)

// LoadDir loads the CUE package in dir and returns its root value.
func LoadDir(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("schemas directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scanning directory: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// CompileSchema compiles every entry under `tables` and `models` in v. An
// optional top-level `schema_version` must equal ir.SchemaVersion. With
// failFast it stops at the first error; otherwise it collects all of them
// and returns the schema built from the entries that compiled.
func CompileSchema(v cue.Value, failFast bool) (*ir.Schema, []error) {
	schema := ir.NewSchema()
	var errs []error

	add := func(err error) bool {
		errs = append(errs, err)
		return failFast
	}

	if verVal := v.LookupPath(cue.ParsePath("schema_version")); verVal.Exists() {
		ver, err := verVal.String()
		if err != nil {
			return schema, []error{formatCUEError(err)}
		}
		if ver != ir.SchemaVersion {
			return schema, []error{&CompileError{
				Field:   "schema_version",
				Message: fmt.Sprintf("unsupported schema version %q (want %q)", ver, ir.SchemaVersion),
				Pos:     verVal.Pos(),
			}}
		}
	}

	if tablesVal := v.LookupPath(cue.ParsePath("tables")); tablesVal.Exists() {
		iter, err := tablesVal.Fields()
		if err != nil {
			return schema, []error{formatCUEError(err)}
		}
		for iter.Next() {
			t, err := CompileTable(iter.Value())
			if err != nil {
				if add(err) {
					return schema, errs
				}
				continue
			}
			schema.Tables[t.Name] = t
		}
	}

	if modelsVal := v.LookupPath(cue.ParsePath("models")); modelsVal.Exists() {
		iter, err := modelsVal.Fields()
		if err != nil {
			return schema, append(errs, formatCUEError(err))
		}
		for iter.Next() {
			m, err := CompileModel(iter.Value())
			if err != nil {
				if add(err) {
					return schema, errs
				}
				continue
			}
			schema.Models[m.Name] = m
		}
	}

	if len(schema.Tables) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no tables found in schemas"))
	}
	return schema, errs
}

// LoadSchema loads dir and compiles it, stopping at the first error.
func LoadSchema(dir string) (*ir.Schema, error) {
	v, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	schema, errs := CompileSchema(v, true)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return schema, nil
}
