// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"fmt"
	"strconv"
)

// Option is a loose bag of provider settings keyed by dotted names such as
// "listen.language".
type Option map[string]interface{}

func (o Option) GetString(key string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", fmt.Errorf("option %q is not set", key)
	}
	switch val := v.(type) {
	case string:
		if IsEmpty(val) {
			return "", fmt.Errorf("option %q is empty", key)
		}
		return val, nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}

func (o Option) GetBool(key string) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return false, fmt.Errorf("option %q is not set", key)
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	default:
		return false, fmt.Errorf("option %q has unsupported type %T", key, v)
	}
}

func (o Option) GetInt(key string) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("option %q is not set", key)
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("option %q has unsupported type %T", key, v)
	}
}
