package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Bind parses msg's filter and order_by against schema and populates
// binding. Filter literals are written to the fields the schema's Ops
// tables name; the validated ordering is written to binding's
// OrderKeys. Binding must point to a struct.
func Bind[M Msg, P any](msg M, binding *P, schema ResourceSchema) error {
	if binding == nil {
		return errors.New("binding must not be nil")
	}

	if err := bindFilter(binding, msg.GetFilter(), schema.Filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	keys, err := parseOrderBy(msg.GetOrderBy(), schema.Order)
	if err != nil {
		return fmt.Errorf("order_by: %w", err)
	}

	return setOrderKeys(binding, keys)
}

func bindFilter(binding any, filter string, fields map[string]FilterField) error {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil
	}

	if len(fields) == 0 {
		return errors.New("schema accepts no filter fields")
	}

	env, err := filterEnv(fields)
	if err != nil {
		return err
	}

	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid filter: %w", issues.Err())
	}

	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return fmt.Errorf("failed to convert AST: %w", err)
	}

	conjuncts, err := splitConjuncts(parsed.GetExpr())
	if err != nil {
		return err
	}

	dest, err := structValue(binding)
	if err != nil {
		return err
	}

	for _, expr := range conjuncts {
		pred, err := parsePredicate(expr)
		if err != nil {
			return err
		}

		rule, ok := fields[pred.field]
		if !ok {
			return fmt.Errorf("field %q is not allowed", pred.field)
		}

		target, ok := rule.Ops[pred.op]
		if !ok {
			return fmt.Errorf("operator %q is not allowed for field %q", string(pred.op), pred.field)
		}

		if err := checkLiteral(rule.Kind, pred.op, pred.value); err != nil {
			return fmt.Errorf("field %q: %w", pred.field, err)
		}

		field := dest.FieldByName(target)
		if !field.IsValid() {
			return fmt.Errorf("params struct %s has no field named %q", dest.Type(), target)
		}
		if !field.CanSet() {
			return fmt.Errorf("cannot set field %q on params struct", target)
		}

		if rule.Setter != nil {
			if field.Kind() == reflect.Ptr && field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := rule.Setter(field, pred.value); err != nil {
				return fmt.Errorf("setter for field %q failed: %w", target, err)
			}
			continue
		}

		if err := assignLiteral(field, pred.value); err != nil {
			return fmt.Errorf("failed to assign field %q: %w", target, err)
		}
	}

	return nil
}

// structValue unwraps binding to its settable struct value.
func structValue(binding any) (reflect.Value, error) {
	rv := reflect.ValueOf(binding)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, errors.New("binding must be a non-nil pointer")
	}
	dest := rv.Elem()
	if dest.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New("binding must point to a struct")
	}
	return dest, nil
}

func filterEnv(fields map[string]FilterField) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(fields)+1)
	for name, rule := range fields {
		ct, err := celType(rule.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		opts = append(opts, cel.Variable(name, ct))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))

	// NOTE: cel-go v0.26.1 does not export an EnvOption for variadic logical operators.
	// We accept the default binary AST shape and flatten nested AND chains in splitConjuncts.
	return cel.NewEnv(opts...)
}

func celType(kind ValueKind) (*cel.Type, error) {
	switch kind {
	case KindString:
		return cel.StringType, nil
	case KindNumber:
		return cel.DoubleType, nil
	case KindTimestamp:
		return cel.TimestampType, nil
	default:
		return nil, fmt.Errorf("unsupported field kind %s", kind)
	}
}

// splitConjuncts flattens nested AND chains into a list of atomic
// predicates. Any other logical operator is rejected so the filter
// stays translatable to a WHERE conjunction.
func splitConjuncts(expr *exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}

	call := expr.GetCallExpr()
	if call == nil {
		return []*exprpb.Expr{expr}, nil
	}

	switch call.Function {
	case "_&&_":
		if len(call.Args) < 2 || call.Target != nil {
			return nil, errors.New("logical AND must have at least two operands")
		}
		var result []*exprpb.Expr
		for _, arg := range call.Args {
			nested, err := splitConjuncts(arg)
			if err != nil {
				return nil, err
			}
			result = append(result, nested...)
		}
		return result, nil
	case "_||_", "_?_:_", "!":
		return nil, fmt.Errorf("logical operator %q is not supported; only AND is allowed", call.Function)
	default:
		return []*exprpb.Expr{expr}, nil
	}
}

type predicate struct {
	field string
	op    Op
	value any
}

func parsePredicate(expr *exprpb.Expr) (predicate, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return predicate{}, errors.New("unsupported expression; expected comparison or function call")
	}

	switch call.Function {
	case "_==_":
		return binaryPredicate(call, OpEQ)
	case "_>=_":
		return binaryPredicate(call, OpGTE)
	case "_<=_":
		return binaryPredicate(call, OpLTE)
	case "_in_", "@in":
		return inPredicate(call)
	case "startsWith":
		return startsWithPredicate(call)
	default:
		return predicate{}, fmt.Errorf("function %q is not supported", call.Function)
	}
}

func binaryPredicate(call *exprpb.Expr_Call, op Op) (predicate, error) {
	if call.Target != nil || len(call.Args) != 2 {
		return predicate{}, fmt.Errorf("operator %q expects two operands", string(op))
	}

	name, err := identName(call.Args[0])
	if err != nil {
		return predicate{}, err
	}
	value, err := parseLiteral(call.Args[1])
	if err != nil {
		return predicate{}, err
	}
	return predicate{field: name, op: op, value: value}, nil
}

func inPredicate(call *exprpb.Expr_Call) (predicate, error) {
	var fieldExpr, listExpr *exprpb.Expr
	if call.Target != nil {
		if len(call.Args) != 1 {
			return predicate{}, errors.New("in operator with receiver must have exactly one argument")
		}
		listExpr, fieldExpr = call.Target, call.Args[0]
	} else {
		if len(call.Args) != 2 {
			return predicate{}, errors.New("in operator expects two operands")
		}
		fieldExpr, listExpr = call.Args[0], call.Args[1]
	}

	name, err := identName(fieldExpr)
	if err != nil {
		return predicate{}, err
	}
	value, err := parseLiteral(listExpr)
	if err != nil {
		return predicate{}, err
	}
	return predicate{field: name, op: OpIN, value: value}, nil
}

func startsWithPredicate(call *exprpb.Expr_Call) (predicate, error) {
	var fieldExpr, valueExpr *exprpb.Expr
	if call.Target != nil {
		if len(call.Args) != 1 {
			return predicate{}, errors.New("startsWith with receiver must have exactly one argument")
		}
		fieldExpr, valueExpr = call.Target, call.Args[0]
	} else {
		if len(call.Args) != 2 {
			return predicate{}, errors.New("startsWith must have exactly two arguments")
		}
		fieldExpr, valueExpr = call.Args[0], call.Args[1]
	}

	name, err := identName(fieldExpr)
	if err != nil {
		return predicate{}, err
	}
	value, err := parseLiteral(valueExpr)
	if err != nil {
		return predicate{}, err
	}
	str, ok := value.(string)
	if !ok {
		return predicate{}, errors.New("startsWith requires a string literal argument")
	}
	return predicate{field: name, op: OpSW, value: str}, nil
}

func identName(expr *exprpb.Expr) (string, error) {
	ident := expr.GetIdentExpr()
	if ident == nil {
		return "", errors.New("left-hand side must be an identifier")
	}
	return ident.GetName(), nil
}
