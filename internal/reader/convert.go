package reader

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
)

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse int value '%s': %w", v, err)
		}
		return n, nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return 0, err
		}
		return asInt64(dv)
	case nil:
		return 0, errNullValue
	default:
		return 0, fmt.Errorf("unsupported int type %T", value)
	}
}

func asInt32(value any) (int32, error) {
	n, err := asInt64(value)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("value %d overflows int32", n)
	}
	return int32(n), nil
}

func asFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse float value '%s': %w", v, err)
		}
		return f, nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return 0, err
		}
		return asFloat64(dv)
	case nil:
		return 0, errNullValue
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("failed to parse bool value '%s': %w", v, err)
		}
		return b, nil
	case nil:
		return false, errNullValue
	default:
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", errNullValue
	default:
		return "", fmt.Errorf("unsupported string type %T", value)
	}
}

// asOptionalString maps NULL to nil.
func asOptionalString(value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
