package ingest

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/storyfeed/storyfeed/pkg/model"
)

var celNewEnv = cel.NewEnv

// NewAdmission compiles a CEL condition over the variable item, e.g.
// `has(item.points) && item.points >= 10`. An empty expression admits all
// items. Items for which evaluation fails are rejected.
func NewAdmission(expr string, logger *slog.Logger) (AdmitFunc, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := celNewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("admission rule must be boolean, got %s", t)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return func(it *model.Item) bool {
		out, _, err := prg.Eval(map[string]interface{}{"item": it.Fields()})
		if err != nil {
			logger.Debug("Admission rule failed", "object_id", it.ObjectID, "error", err)
			return false
		}
		admitted, ok := out.Value().(bool)
		return ok && admitted
	}, nil
}
