package store

import (
	"fmt"

	"github.com/roach88/waterline/internal/ir"
)

// marshalConfig converts a flattened compiler config to canonical JSON TEXT.
func marshalConfig(config map[string]string) (string, error) {
	obj := make(ir.Object, len(config))
	for k, v := range config {
		obj[k] = ir.Str(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func unmarshalConfig(data string) (map[string]string, error) {
	obj, err := ir.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	config := make(map[string]string, len(obj))
	for _, k := range obj.SortedKeys() {
		if config[k], err = obj.Str(k); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	return config, nil
}

func marshalPrimeBits(bits []int) (string, error) {
	data, err := ir.MarshalCanonical(ir.Ints(bits))
	if err != nil {
		return "", fmt.Errorf("marshal prime bits: %w", err)
	}
	return string(data), nil
}

func unmarshalPrimeBits(data string) ([]int, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal prime bits: %w", err)
	}
	bits, err := ir.Object{"prime_bits": v}.Ints("prime_bits")
	if err != nil {
		return nil, fmt.Errorf("unmarshal prime bits: %w", err)
	}
	return bits, nil
}
