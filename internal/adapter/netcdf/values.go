package netcdf

import "fmt"

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func convertRows[T number](in [][]T) [][]float64 {
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = convert(row)
	}
	return out
}

// flatten converts a decoded 1-D numeric variable to float64.
func flatten(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return convert(x), nil
	case []float32:
		return convert(x), nil
	case []int8:
		return convert(x), nil
	case []uint8:
		return convert(x), nil
	case []int16:
		return convert(x), nil
	case []uint16:
		return convert(x), nil
	case []int32:
		return convert(x), nil
	case []uint32:
		return convert(x), nil
	case []int64:
		return convert(x), nil
	case []uint64:
		return convert(x), nil
	}
	if f, ok := scalar(v); ok {
		return []float64{f}, nil
	}
	return nil, fmt.Errorf("unsupported 1-D storage type %T", v)
}

// rows2D converts a decoded 2-D numeric variable to float64 rows.
func rows2D(v any) ([][]float64, error) {
	switch x := v.(type) {
	case [][]float64:
		return convertRows(x), nil
	case [][]float32:
		return convertRows(x), nil
	case [][]int8:
		return convertRows(x), nil
	case [][]uint8:
		return convertRows(x), nil
	case [][]int16:
		return convertRows(x), nil
	case [][]uint16:
		return convertRows(x), nil
	case [][]int32:
		return convertRows(x), nil
	case [][]uint32:
		return convertRows(x), nil
	case [][]int64:
		return convertRows(x), nil
	case [][]uint64:
		return convertRows(x), nil
	default:
		return nil, fmt.Errorf("unsupported 2-D storage type %T", v)
	}
}

func scalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int8:
		return float64(x), true
	case uint8:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint16:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
