package artifact

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/eval"
	"github.com/roach88/waterline/internal/frontend"
	"github.com/roach88/waterline/internal/ir"
)

func testProgram(t *testing.T) *ir.Program {
	t.Helper()
	p, err := frontend.NewProgram("affine", 4, func(s *frontend.Scope) error {
		if err := s.SetInputScales(30); err != nil {
			return err
		}
		if err := s.SetOutputRanges(10); err != nil {
			return err
		}
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		y, err := x.Mul([]float64{0.5, 1.25})
		if err != nil {
			return err
		}
		if y, err = y.RotateLeft(1); err != nil {
			return err
		}
		return s.Output("y", y)
	})
	require.NoError(t, err)
	return p
}

func TestProgramRoundTrip(t *testing.T) {
	p := testProgram(t)

	data, err := SaveProgram(p)
	require.NoError(t, err)
	loaded, err := LoadProgram(data)
	require.NoError(t, err)

	again, err := SaveProgram(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "save(load(b)) must be byte-identical")
	assert.Equal(t, ir.MustProgramID(p), ir.MustProgramID(loaded))

	in := eval.Valuation{"x": {1, 2, 3, 4}}
	want, err := eval.Evaluate(p, in)
	require.NoError(t, err)
	got, err := eval.Evaluate(loaded, in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParametersRoundTrip(t *testing.T) {
	params := ir.Parameters{
		PrimeBits:         []int{60, 20, 60, 60},
		Rotations:         []int{-1, 2},
		PolyModulusDegree: 8192,
		SecurityLevel:     128,
	}
	data, err := SaveParameters(params)
	require.NoError(t, err)

	loaded, err := LoadParameters(data)
	require.NoError(t, err)
	if diff := cmp.Diff(params, loaded); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := ir.Signature{
		VecSize: 8,
		Inputs: map[string]ir.EncodingInfo{
			"x": {Type: ir.TypeCipher, Scale: 60, Level: 1},
			"w": {Type: ir.TypeRaw, Scale: 30},
		},
		Outputs: map[string]ir.OutputInfo{"y": {Scale: 60, Range: 20}},
	}
	data, err := SaveSignature(sig)
	require.NoError(t, err)

	loaded, err := LoadSignature(data)
	require.NoError(t, err)
	if diff := cmp.Diff(sig, loaded); diff != "" {
		t.Errorf("signature mismatch (-want +got):\n%s", diff)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	values := eval.Valuation{
		"a": {0.1, -2.5, 1e-12},
		"b": {3},
	}
	data, err := SaveValues(values)
	require.NoError(t, err)
	assert.Equal(t,
		`{"format_version":1,"kind":"values","payload":{"a":["0.1","-2.5","1e-12"],"b":["3"]}}`,
		string(data))

	loaded, err := LoadValues(data)
	require.NoError(t, err)
	assert.Equal(t, values, loaded)
}

func TestUnmarshalRejects(t *testing.T) {
	good, err := SaveValues(eval.Valuation{"a": {1}})
	require.NoError(t, err)

	tests := map[string][]byte{
		"wrong kind":      good,
		"not json":        []byte("{"),
		"unknown kind":    []byte(`{"format_version":1,"kind":"recipe","payload":{}}`),
		"newer version":   []byte(`{"format_version":99,"kind":"parameters","payload":{}}`),
		"missing payload": []byte(`{"format_version":1,"kind":"parameters"}`),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadParameters(data)
			require.Error(t, err)
			assert.True(t, ir.IsValidationError(err), "got %v", err)
		})
	}
}

func TestOpen(t *testing.T) {
	data, err := SaveParameters(ir.Parameters{PrimeBits: []int{40, 40}, PolyModulusDegree: 2048, SecurityLevel: 128})
	require.NoError(t, err)

	env, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, KindParameters, env.Kind)
	assert.Equal(t, ir.FormatVersion, env.FormatVersion)
	assert.Contains(t, env.Payload, "prime_bits")
}

func TestContentID(t *testing.T) {
	data := []byte(`{"format_version":1,"kind":"values","payload":{}}`)

	id := ContentID(KindValues, data)
	assert.Len(t, id, 64)
	assert.Equal(t, id, ContentID(KindValues, data))
	assert.NotEqual(t, id, ContentID(KindProgram, data), "kind is part of the domain")
}

func TestBlob(t *testing.T) {
	payload := []byte("ciphertext bytes")
	obj := Blob(payload)

	data, err := OpenBlob(obj)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	t.Run("tampered data", func(t *testing.T) {
		bad := ir.Object{"data": ir.Str("Y2lwaGVydGV4dCBieXRlUw=="), "size": obj["size"], "blake3": obj["blake3"]}
		_, err := OpenBlob(bad)
		require.Error(t, err)
		assert.True(t, ir.IsValidationError(err))
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("size mismatch", func(t *testing.T) {
		bad := ir.Object{"data": obj["data"], "size": ir.Int(3), "blake3": obj["blake3"]}
		_, err := OpenBlob(bad)
		assert.True(t, ir.IsValidationError(err))
	})

	t.Run("survives envelope", func(t *testing.T) {
		env, err := Marshal(KindEncrypted, ir.Object{"x": obj})
		require.NoError(t, err)
		payload2, err := Unmarshal(env, KindEncrypted)
		require.NoError(t, err)
		blob, err := payload2.Object("x")
		require.NoError(t, err)
		data, err := OpenBlob(blob)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "ciphertext"))
	})
}
