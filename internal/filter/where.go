package filter

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hurttlocker/issuelens/internal/issues"
)

// whereEnv is the environment a Where expression sees for one record.
//
//	Status in ["Open", "In Progress"] && Cluster != 3
//	HasCreated && Month >= "2024-02"
//	Fields["Assignee"] == "ana"
type whereEnv struct {
	Key        string
	Summary    string
	Tag        string
	Status     string
	Cluster    int
	Created    time.Time
	HasCreated bool
	Month      string
	Fields     map[string]string
}

type whereProgram struct {
	src     string
	program *vm.Program
}

func compileWhere(src string) (*whereProgram, error) {
	program, err := expr.Compile(src, expr.Env(whereEnv{}), expr.AsBool())
	if err != nil {
		return nil, &FilterError{Field: "where", Reason: err.Error()}
	}
	return &whereProgram{src: src, program: program}, nil
}

func (w *whereProgram) match(rec issues.Record) (bool, error) {
	env := whereEnv{
		Key:     rec.Key,
		Summary: rec.Summary,
		Tag:     rec.Tag,
		Status:  rec.Status,
		Cluster: rec.Cluster,
		Fields:  rec.Extra,
	}
	if env.Fields == nil {
		env.Fields = map[string]string{}
	}
	if rec.Created != nil {
		env.Created = *rec.Created
		env.HasCreated = true
		env.Month = rec.Created.UTC().Format("2006-01")
	}

	out, err := expr.Run(w.program, env)
	if err != nil {
		return false, &FilterError{Field: "where", Reason: fmt.Sprintf("evaluating %q on %s: %v", w.src, rec.Key, err)}
	}
	ok, _ := out.(bool)
	return ok, nil
}
