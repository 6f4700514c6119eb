package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/hemaweb/featmock/pkg/mock"
)

// exprEnv is the variable set available to `expr` route bodies.
func exprEnv(ctx *mock.Context, seed any) map[string]any {
	params := ctx.Params
	if params == nil {
		params = []string{}
	}
	headers := make(map[string]string, len(ctx.Request.Header))
	for k, vs := range ctx.Request.Header {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}
	return map[string]any{
		"method":  ctx.Request.Method,
		"path":    ctx.URL.Path,
		"query":   ctx.Query,
		"params":  params,
		"body":    ctx.Body,
		"seed":    seed,
		"headers": headers,
		"now":     time.Now(),
	}
}

// exprTypes is the type-check environment; values only fix the types.
var exprTypes = map[string]any{
	"method":  "",
	"path":    "",
	"query":   map[string]string{},
	"params":  []string{},
	"body":    any(nil),
	"seed":    any(nil),
	"headers": map[string]string{},
	"now":     time.Time{},
}

// exprFunctions are helpers for the common envelope and list shapes.
var exprFunctions = []expr.Option{
	expr.Function("ok", func(params ...any) (any, error) {
		if len(params) == 0 {
			return envelopeMap(mock.OK(nil, "success")), nil
		}
		msg := "success"
		if len(params) > 1 {
			msg = fmt.Sprint(params[1])
		}
		return envelopeMap(mock.OK(params[0], msg)), nil
	}),
	expr.Function("fail", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("fail(code, message) takes 2 arguments, got %d", len(params))
		}
		code, err := toInt(params[0])
		if err != nil {
			return nil, err
		}
		return envelopeMap(mock.Fail(code, fmt.Sprint(params[1]))), nil
	}),
	expr.Function("paginate", func(params ...any) (any, error) {
		if len(params) != 3 {
			return nil, fmt.Errorf("paginate(items, page, size) takes 3 arguments, got %d", len(params))
		}
		items, ok := params[0].([]any)
		if !ok && params[0] != nil {
			return nil, fmt.Errorf("paginate: items must be an array, got %T", params[0])
		}
		page, err := toInt(params[1])
		if err != nil {
			return nil, err
		}
		size, err := toInt(params[2])
		if err != nil {
			return nil, err
		}
		p := mock.Paginate(items, page, size)
		return map[string]any{"data": p.Data, "total": p.Total, "page": p.Page, "size": p.Size}, nil
	}),
	expr.Function("merge", func(params ...any) (any, error) {
		out := map[string]any{}
		for i, p := range params {
			if p == nil {
				continue
			}
			m, ok := p.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("merge: argument %d is %T, not an object", i, p)
			}
			for k, v := range m {
				out[k] = v
			}
		}
		return out, nil
	}),
	expr.Function("uuid", func(...any) (any, error) {
		return uuid.NewString(), nil
	}),
}

func envelopeMap(e mock.Envelope) map[string]any {
	return map[string]any{"data": e.Data, "message": e.Message, "code": e.Code}
}

// toInt accepts the numeric and string forms query values and YAML give. An
// empty string is 0 so missing query values fall back to defaults.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

// compileExpr type-checks an expression once at load time.
func compileExpr(src string) (*vm.Program, error) {
	opts := append([]expr.Option{expr.Env(exprTypes)}, exprFunctions...)
	return expr.Compile(src, opts...)
}

// exprHandler evaluates program per request. Programs are safe to run
// concurrently.
func exprHandler(program *vm.Program, seed any) mock.Handler {
	return func(ctx *mock.Context) (any, error) {
		out, err := expr.Run(program, exprEnv(ctx, seed))
		if err != nil {
			return nil, fmt.Errorf("eval expression: %w", err)
		}
		return out, nil
	}
}
