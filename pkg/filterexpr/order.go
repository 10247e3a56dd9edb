package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// OrderKeys is the validated ordering of a list query. Both keys are
// whitelisted by the schema and always distinct, so a query ordered
// by them is stable across pages. Params structs passed to Bind
// embed it.
type OrderKeys struct {
	PrimaryKey    string
	PrimaryDesc   bool
	SecondaryKey  string
	SecondaryDesc bool
}

var orderKeysType = reflect.TypeOf(OrderKeys{})

// Clause renders keys as an ORDER BY body using the schema's column
// expressions. parseOrderBy only emits whitelisted keys, so the
// result is safe to hand to the SQL builder.
func (s OrderSchema) Clause(keys OrderKeys) string {
	var b strings.Builder
	s.writeKey(&b, keys.PrimaryKey, keys.PrimaryDesc)
	if keys.SecondaryKey != "" && keys.SecondaryKey != keys.PrimaryKey {
		b.WriteString(", ")
		s.writeKey(&b, keys.SecondaryKey, keys.SecondaryDesc)
	}
	return b.String()
}

func (s OrderSchema) writeKey(b *strings.Builder, key string, desc bool) {
	field := s.Fields[key]
	expr := field.Expr
	if expr == "" {
		expr = key
	}
	b.WriteString(expr)
	if desc {
		b.WriteString(" DESC")
	}
	if field.Nulls != "" {
		b.WriteString(" NULLS ")
		b.WriteString(strings.ToUpper(field.Nulls))
	}
}

func parseOrderBy(raw string, schema OrderSchema) (OrderKeys, error) { //nolint:gocognit,gocyclo // parsing DSL entails validation branches for readability
	if schema.Fields == nil {
		schema.Fields = map[string]OrderField{}
	}

	if schema.DefaultPrimary == "" {
		return OrderKeys{}, errors.New("order schema default primary key required")
	}
	if schema.FallbackKey == "" {
		return OrderKeys{}, errors.New("order schema fallback key required")
	}

	if _, ok := schema.Fields[schema.DefaultPrimary]; !ok {
		return OrderKeys{}, fmt.Errorf("order key %q missing from schema fields", schema.DefaultPrimary)
	}
	if _, ok := schema.Fields[schema.FallbackKey]; !ok {
		return OrderKeys{}, fmt.Errorf("fallback order key %q missing from schema fields", schema.FallbackKey)
	}

	keys := OrderKeys{
		PrimaryKey:    schema.DefaultPrimary,
		PrimaryDesc:   schema.DefaultPrimaryDesc,
		SecondaryKey:  schema.FallbackKey,
		SecondaryDesc: schema.FallbackDesc,
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return keys, nil
	}

	segments := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(segments))
	idx := 0
	for _, seg := range segments {
		parts := strings.Fields(seg)
		if len(parts) == 0 {
			continue
		}

		key := parts[0]
		if _, ok := schema.Fields[key]; !ok {
			return OrderKeys{}, fmt.Errorf("field %q cannot be used for ordering", key)
		}

		var desc bool
		switch len(parts) {
		case 1:
		case 2:
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				desc = true
			default:
				return OrderKeys{}, fmt.Errorf("invalid direction %q for field %q", parts[1], key)
			}
		default:
			return OrderKeys{}, fmt.Errorf("invalid order segment %q", strings.TrimSpace(seg))
		}

		if _, dup := seen[key]; dup {
			return OrderKeys{}, fmt.Errorf("duplicate order key %q", key)
		}
		seen[key] = struct{}{}

		switch idx {
		case 0:
			keys.PrimaryKey, keys.PrimaryDesc = key, desc
		case 1:
			keys.SecondaryKey, keys.SecondaryDesc = key, desc
		default:
			return OrderKeys{}, errors.New("order_by supports at most two keys")
		}
		idx++
	}

	if keys.SecondaryKey == keys.PrimaryKey {
		// pick any other whitelisted key so the ordering stays stable
		keys.SecondaryKey, keys.SecondaryDesc = "", false
		for key := range schema.Fields {
			if key != keys.PrimaryKey {
				keys.SecondaryKey = key
				break
			}
		}
		if keys.SecondaryKey == "" {
			return OrderKeys{}, errors.New("order schema requires at least two distinct keys for stable ordering")
		}
	}

	return keys, nil
}

// setOrderKeys writes keys onto binding. An embedded OrderKeys field
// takes the whole value at once; otherwise the four key fields are
// set by name.
func setOrderKeys(binding any, keys OrderKeys) error {
	target, err := structValue(binding)
	if err != nil {
		return err
	}

	if f := target.FieldByName("OrderKeys"); f.IsValid() && f.Type() == orderKeysType && f.CanSet() {
		f.Set(reflect.ValueOf(keys))
		return nil
	}

	if err := setField(target, "PrimaryKey", reflect.ValueOf(keys.PrimaryKey)); err != nil {
		return err
	}
	if err := setField(target, "PrimaryDesc", reflect.ValueOf(keys.PrimaryDesc)); err != nil {
		return err
	}
	if err := setField(target, "SecondaryKey", reflect.ValueOf(keys.SecondaryKey)); err != nil {
		return err
	}
	return setField(target, "SecondaryDesc", reflect.ValueOf(keys.SecondaryDesc))
}

func setField(target reflect.Value, name string, value reflect.Value) error {
	field := target.FieldByName(name)
	if !field.IsValid() {
		return fmt.Errorf("params struct %s has no field named %q", target.Type(), name)
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field %q on params struct", name)
	}

	switch field.Kind() {
	case reflect.Interface:
		field.Set(value)
		return nil
	case reflect.Ptr:
		elemType := field.Type().Elem()
		if !value.Type().ConvertibleTo(elemType) {
			return fmt.Errorf("field %q must be %s-compatible, got %s", name, elemType, value.Type())
		}
		if field.IsNil() {
			field.Set(reflect.New(elemType))
		}
		field.Elem().Set(value.Convert(elemType))
		return nil
	default:
		if !value.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("field %q must be %s-compatible, got %s", name, field.Type(), value.Type())
		}
		field.Set(value.Convert(field.Type()))
		return nil
	}
}
