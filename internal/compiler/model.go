package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/qcase/internal/ir"
)

// CompileModel parses a CUE value into a Model.
//
// The model name is the struct label. table defaults to the model name; each
// purpose list is optional and stays nil when absent, so an unconfigured
// purpose falls back to the table's defaults.
//
//	models: user: {
//		table:    "users"
//		listable: ["id", "name", "profile.bio"]
//		filtable: ["id", "name", "age"]
//	}
func CompileModel(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	model := &ir.Model{Name: label(v)}

	table, err := optionalString(v, "table")
	if err != nil {
		return nil, err
	}
	if table == "" {
		table = model.Name
	}
	model.Table = table

	for _, f := range []struct {
		path string
		dst  *[]string
	}{
		{"listable", &model.Listable},
		{"sortable", &model.Sortable},
		{"findable", &model.Findable},
		{"filtable", &model.Filtable},
		{"saveable", &model.Saveable},
	} {
		if *f.dst, err = optionalStrings(v, f.path); err != nil {
			return nil, err
		}
		if *f.dst == nil && v.LookupPath(cue.ParsePath(f.path)).Exists() {
			// an explicit empty list configures the purpose as empty
			*f.dst = []string{}
		}
	}

	return model, nil
}
