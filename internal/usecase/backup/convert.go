package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// convertDBValue maps a scanned database value onto its export
// representation: bytes become base64 strings, times RFC3339Nano in
// UTC, json columns raw messages.
func convertDBValue(col *columnSchema, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case []byte:
		if col.Kind == kindBytes {
			if len(v) == 0 {
				return "", nil
			}
			return base64.StdEncoding.EncodeToString(v), nil
		}
		// database/sql often returns []byte for text columns.
		if col.Kind == kindJSON {
			cp := make(json.RawMessage, len(v))
			copy(cp, v)
			return cp, nil
		}
		return string(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	}

	switch col.Kind {
	case kindBool:
		switch vv := value.(type) {
		case bool:
			return vv, nil
		case int64:
			return vv != 0, nil
		case uint64:
			return vv != 0, nil
		default:
			return toBool(value)
		}
	case kindInt:
		return toInt64(value)
	case kindUint:
		return toUint64(value)
	case kindFloat:
		return toFloat64(value)
	case kindJSON:
		if s, ok := value.(string); ok {
			return json.RawMessage(s), nil
		}
		return value, nil
	default:
		return value, nil
	}
}

func decodePayload(tbl *tableSchema, payload json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	result := make(map[string]any, len(raw))
	for key, val := range raw {
		col := tbl.column(key)
		if col == nil {
			return nil, fmt.Errorf("column %s not found in table %s", key, tbl.Name)
		}
		converted, err := convertJSONValue(col, val)
		if err != nil {
			return nil, fmt.Errorf("convert %s.%s: %w", tbl.Name, key, err)
		}
		result[key] = converted
	}
	return result, nil
}

func convertJSONValue(col *columnSchema, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch col.Kind {
	case kindBool:
		return toBool(value)
	case kindInt:
		return toInt64(value)
	case kindUint:
		return toUint64(value)
	case kindFloat:
		return toFloat64(value)
	case kindTime:
		str, err := toString(value)
		if err != nil {
			return nil, err
		}
		if str == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case kindBytes:
		str, err := toString(value)
		if err != nil {
			return nil, err
		}
		if str == "" {
			return []byte{}, nil
		}
		return base64.StdEncoding.DecodeString(str)
	case kindJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	default:
		return value, nil
	}
}

// defaultValueForKind fills not-null columns whose payload value is
// null, which happens when an export predates a column addition.
func defaultValueForKind(kind columnKind) (any, bool) {
	switch kind {
	case kindJSON:
		return json.RawMessage("{}"), true
	case kindString:
		return "", true
	case kindInt, kindUint, kindFloat:
		return 0, true
	case kindBool:
		return false, true
	default:
		return nil, false
	}
}

func tryToInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(v), true
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return false, err
		}
		return i != 0, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return false, fmt.Errorf("invalid bool value %q", v)
		}
	case float64:
		return v != 0, nil
	case float32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported int type %T", value)
	}
}

func toUint64(value any) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative integer %d for unsigned column", v)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative integer %d for unsigned column", v)
		}
		return uint64(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, fmt.Errorf("negative integer %d for unsigned column", i)
		}
		return uint64(i), nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported uint type %T", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}
