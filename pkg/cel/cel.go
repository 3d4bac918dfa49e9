package cel

import (
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Context makes it easy to execute CEL expressions on a polled commit.
//
// Expressions can refer to "context", the commit as returned by the hosting
// service, and "sha", the polled commit SHA.
type Context struct {
	env  *cel.Env
	Data map[string]interface{}
}

// New creates and returns a Context for evaluating expressions.
func New(sha string, context interface{}) (*Context, error) {
	env, err := makeCelEnv()
	if err != nil {
		return nil, err
	}
	ctx, err := makeEvalContext(sha, context)
	if err != nil {
		return nil, err
	}
	return &Context{
		env:  env,
		Data: ctx,
	}, nil
}

// Evaluate evaluates the provided expression and returns the result.
func (c *Context) Evaluate(expr string) (ref.Val, error) {
	return evaluate(expr, c.env, c.Data)
}

// EvaluateBool evaluates the provided expression, which must produce a bool.
func (c *Context) EvaluateBool(expr string) (bool, error) {
	res, err := c.Evaluate(expr)
	if err != nil {
		return false, err
	}
	b, ok := res.(types.Bool)
	if !ok {
		return false, fmt.Errorf("unknown result type %T, expression must evaluate to a bool", res)
	}
	return bool(b), nil
}

// Check parses and type-checks an expression without evaluating it.
func Check(expr string) error {
	env, err := makeCelEnv()
	if err != nil {
		return err
	}
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

func evaluate(expr string, env *cel.Env, data map[string]interface{}) (ref.Val, error) {
	parsed, issues := env.Parse(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	checked, issues := env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(data)
	return out, err
}

func makeCelEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("context", cel.DynType),
		cel.Variable("sha", cel.StringType))
}

func makeEvalContext(sha string, context interface{}) (map[string]interface{}, error) {
	m, err := contextToMap(context)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"context": m, "sha": sha}, nil
}

func contextToMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	err = json.Unmarshal(b, &m)
	if m == nil {
		m = map[string]interface{}{}
	}
	return m, err
}
