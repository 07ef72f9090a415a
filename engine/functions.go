package engine

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlite "modernc.org/sqlite"
)

// SQL function names registered by RegisterVectorFunctions.
const (
	FuncCosine = "kb_cosine"
	FuncL2     = "kb_l2"
	FuncDot    = "kb_dot"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterVectorFunctions registers kb_cosine, kb_l2 and kb_dot with the
// driver so they are available on connections opened after this call.
// Existing open connections will not see new functions.
func RegisterVectorFunctions() error {
	registerOnce.Do(func() {
		for name, impl := range map[string]func(a, b []float32) (float64, error){
			FuncCosine: cosine,
			FuncL2:     l2,
			FuncDot:    dot,
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(name, 2, scalar(name, impl)); err != nil {
				registerErr = fmt.Errorf("engine: register %s: %w", name, err)
				return
			}
		}
	})
	return registerErr
}

func scalar(name string, impl func(a, b []float32) (float64, error)) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asEmbedding(args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		v, err := impl(a, b)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	default:
		return nil, fmt.Errorf("engine: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

// Local helpers; engine cannot import vector, which imports engine.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("engine: invalid embedding blob length %d", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("engine: dot dim mismatch %d vs %d", len(a), len(b))
	}
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s, nil
}

// cosine returns 0 for zero-magnitude input so rows without a usable
// embedding sort last instead of failing the whole query.
func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("engine: cosine dim mismatch %d vs %d", len(a), len(b))
	}
	var d, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		d += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	return d / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

func l2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("engine: L2 dim mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
