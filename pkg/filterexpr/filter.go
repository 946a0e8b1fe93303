// Package filterexpr parses the CEL subset accepted by list queries: a
// conjunction of field comparisons, and a short order_by clause.
package filterexpr

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/samber/lo"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Kind is the literal type a field compares against.
type Kind uint8

const (
	String Kind = iota + 1
	Number
	Timestamp
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Timestamp:
		return "timestamp"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Op is a comparison a predicate may use.
type Op string

const (
	Eq     Op = "=="
	Gte    Op = ">="
	Lte    Op = "<="
	Prefix Op = "startsWith"
	In     Op = "in"
)

// Field declares one filterable identifier and the comparisons it allows.
type Field struct {
	Kind Kind
	Ops  []Op
}

// Predicate is one comparison of a parsed filter. Value holds a string,
// []string, float64, bool or time.Time depending on the field kind.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func (p Predicate) Str() string {
	s, _ := p.Value.(string)
	return s
}

func (p Predicate) Strings() []string {
	list, _ := p.Value.([]string)
	return append([]string(nil), list...)
}

func (p Predicate) Bool() bool {
	b, _ := p.Value.(bool)
	return b
}

func (p Predicate) Time() time.Time {
	t, _ := p.Value.(time.Time)
	return t
}

// Int returns the number literal as an int, rejecting fractions.
func (p Predicate) Int() (int, error) {
	f, ok := p.Value.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q: expected number literal", p.Field)
	}
	if math.Trunc(f) != f || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("field %q: %v is not a valid integer", p.Field, f)
	}
	return int(f), nil
}

// Parse turns filter into predicates allowed by fields. An empty filter
// yields no predicates.
func Parse(filter string, fields map[string]Field) ([]Predicate, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	if len(fields) == 0 {
		return nil, errors.New("no filterable fields declared")
	}

	env, err := newEnv(fields)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("convert filter ast: %w", err)
	}

	terms, err := flattenAnd(parsed.GetExpr())
	if err != nil {
		return nil, err
	}
	preds := make([]Predicate, 0, len(terms))
	for _, term := range terms {
		pred, err := toPredicate(term)
		if err != nil {
			return nil, err
		}
		field, ok := fields[pred.Field]
		if !ok {
			return nil, fmt.Errorf("field %q is not filterable", pred.Field)
		}
		if !lo.Contains(field.Ops, pred.Op) {
			return nil, fmt.Errorf("operator %q is not allowed for field %q", pred.Op, pred.Field)
		}
		if err := checkLiteral(field.Kind, pred); err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func newEnv(fields map[string]Field) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(fields)+1)
	for name, field := range fields {
		var t *cel.Type
		switch field.Kind {
		case String:
			t = cel.StringType
		case Number:
			t = cel.DoubleType
		case Timestamp:
			t = cel.TimestampType
		case Bool:
			t = cel.BoolType
		default:
			return nil, fmt.Errorf("field %q: unsupported kind %s", name, field.Kind)
		}
		opts = append(opts, cel.Variable(name, t))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	return cel.NewEnv(opts...)
}

// flattenAnd splits nested && chains into their operands.
func flattenAnd(expr *exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	call := expr.GetCallExpr()
	if call == nil {
		return []*exprpb.Expr{expr}, nil
	}
	switch call.GetFunction() {
	case "_&&_":
		var out []*exprpb.Expr
		for _, arg := range call.GetArgs() {
			terms, err := flattenAnd(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, terms...)
		}
		return out, nil
	case "_||_", "_?_:_", "!_":
		return nil, fmt.Errorf("operator %q is not supported, combine terms with &&", call.GetFunction())
	default:
		return []*exprpb.Expr{expr}, nil
	}
}

func toPredicate(expr *exprpb.Expr) (Predicate, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return Predicate{}, errors.New("expected a comparison")
	}

	var (
		op          Op
		left, right *exprpb.Expr
	)
	args := call.GetArgs()
	switch fn := call.GetFunction(); fn {
	case "_==_", "_>=_", "_<=_":
		if call.GetTarget() != nil || len(args) != 2 {
			return Predicate{}, fmt.Errorf("%s expects two operands", fn)
		}
		op = Op(strings.Trim(fn, "_"))
		left, right = args[0], args[1]
	case "@in", "_in_":
		if len(args) != 2 {
			return Predicate{}, errors.New("in expects two operands")
		}
		op, left, right = In, args[0], args[1]
	case "startsWith":
		if call.GetTarget() == nil || len(args) != 1 {
			return Predicate{}, errors.New("use field.startsWith('prefix')")
		}
		op, left, right = Prefix, call.GetTarget(), args[0]
	default:
		return Predicate{}, fmt.Errorf("function %q is not supported", fn)
	}

	ident := left.GetIdentExpr()
	if ident == nil {
		return Predicate{}, errors.New("left-hand side must be a field name")
	}
	value, err := literal(right)
	if err != nil {
		return Predicate{}, fmt.Errorf("field %q: %w", ident.GetName(), err)
	}
	return Predicate{Field: ident.GetName(), Op: op, Value: value}, nil
}

func literal(expr *exprpb.Expr) (any, error) {
	if c := expr.GetConstExpr(); c != nil {
		switch v := c.GetConstantKind().(type) {
		case *exprpb.Constant_StringValue:
			return v.StringValue, nil
		case *exprpb.Constant_Int64Value:
			return float64(v.Int64Value), nil
		case *exprpb.Constant_Uint64Value:
			return float64(v.Uint64Value), nil
		case *exprpb.Constant_DoubleValue:
			return v.DoubleValue, nil
		case *exprpb.Constant_BoolValue:
			return v.BoolValue, nil
		default:
			return nil, fmt.Errorf("literal %T is not supported", v)
		}
	}

	if list := expr.GetListExpr(); list != nil {
		out := make([]string, 0, len(list.GetElements()))
		for i, elem := range list.GetElements() {
			s := elem.GetConstExpr().GetStringValue()
			if s == "" {
				return nil, fmt.Errorf("list element %d must be a non-empty string", i)
			}
			out = append(out, s)
		}
		return out, nil
	}

	if call := expr.GetCallExpr(); call != nil && call.GetFunction() == "timestamp" {
		if len(call.GetArgs()) != 1 {
			return nil, errors.New("timestamp() takes one string")
		}
		raw := call.GetArgs()[0].GetConstExpr().GetStringValue()
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("timestamp %q is not RFC3339", raw)
		}
		return t, nil
	}

	return nil, errors.New("right-hand side must be a literal, a string list or timestamp()")
}

func checkLiteral(kind Kind, p Predicate) error {
	ok := false
	switch kind {
	case String:
		if p.Op == In {
			list, isList := p.Value.([]string)
			ok = isList && len(list) > 0
		} else {
			_, ok = p.Value.(string)
		}
	case Number:
		_, ok = p.Value.(float64)
	case Timestamp:
		_, ok = p.Value.(time.Time)
	case Bool:
		_, ok = p.Value.(bool)
	}
	if !ok {
		return fmt.Errorf("field %q: expected %s literal", p.Field, kind)
	}
	return nil
}
