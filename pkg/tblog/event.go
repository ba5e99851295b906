package tblog

import (
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the TensorBoard event protos. Only the fields needed
// to extract tag-addressed scalar points are decoded; everything else is
// skipped.
const (
	eventFieldWallTime = 1
	eventFieldStep     = 2
	eventFieldSummary  = 5

	summaryFieldValue = 1

	valueFieldTag         = 1
	valueFieldSimpleValue = 2
	valueFieldTensor      = 8

	tensorFieldDtype     = 1
	tensorFieldContent   = 4
	tensorFieldFloatVal  = 5
	tensorFieldDoubleVal = 6
	tensorFieldIntVal    = 7
	tensorFieldInt64Val  = 10
)

// Tensor dtypes with a scalar interpretation.
const (
	dtFloat  = 1
	dtDouble = 2
	dtInt32  = 3
	dtInt64  = 9
)

// taggedValue is one scalar extracted from a summary record.
type taggedValue struct {
	Tag   string
	Value float64
}

// event is the decoded subset of a single log record.
type event struct {
	WallTime float64
	Step     int64
	Values   []taggedValue
}

// decodeEvent decodes an event record. Records without summary values
// (e.g. file version headers) decode to an event with no values.
func decodeEvent(b []byte) (*event, error) {
	ev := &event{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("event tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		switch {
		case num == eventFieldWallTime && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, fmt.Errorf("wall_time: %w", protowire.ParseError(m))
			}

			ev.WallTime = math.Float64frombits(v)
			b = b[m:]
		case num == eventFieldStep && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("step: %w", protowire.ParseError(m))
			}

			ev.Step = int64(v)
			b = b[m:]
		case num == eventFieldSummary && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("summary: %w", protowire.ParseError(m))
			}

			if err := decodeSummary(v, ev); err != nil {
				return nil, err
			}

			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("skipping field %d: %w", num, protowire.ParseError(m))
			}

			b = b[m:]
		}
	}

	return ev, nil
}

func decodeSummary(b []byte, ev *event) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("summary tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		if num == summaryFieldValue && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("summary value: %w", protowire.ParseError(m))
			}

			tv, ok, err := decodeSummaryValue(v)
			if err != nil {
				return err
			}

			if ok {
				ev.Values = append(ev.Values, tv)
			}

			b = b[m:]

			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return fmt.Errorf("skipping summary field %d: %w", num, protowire.ParseError(m))
		}

		b = b[m:]
	}

	return nil
}

// decodeSummaryValue extracts the tag and a scalar from one Summary.Value.
// V1 records carry simple_value directly; V2 records carry a tensor that
// is reduced to a scalar. Values with neither representation are skipped.
func decodeSummaryValue(b []byte) (taggedValue, bool, error) {
	var (
		tv        taggedValue
		hasScalar bool
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return tv, false, fmt.Errorf("value tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		switch {
		case num == valueFieldTag && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return tv, false, fmt.Errorf("tag name: %w", protowire.ParseError(m))
			}

			tv.Tag = string(v)
			b = b[m:]
		case num == valueFieldSimpleValue && typ == protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return tv, false, fmt.Errorf("simple_value: %w", protowire.ParseError(m))
			}

			// V1 scalar summaries win over any tensor representation.
			tv.Value = float64(math.Float32frombits(v))
			hasScalar = true
			b = b[m:]
		case num == valueFieldTensor && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return tv, false, fmt.Errorf("tensor: %w", protowire.ParseError(m))
			}

			if !hasScalar {
				scalar, ok, err := decodeTensorScalar(v)
				if err != nil {
					return tv, false, err
				}

				if ok {
					tv.Value = scalar
					hasScalar = true
				}
			}

			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return tv, false, fmt.Errorf("skipping value field %d: %w", num, protowire.ParseError(m))
			}

			b = b[m:]
		}
	}

	return tv, hasScalar && tv.Tag != "", nil
}

// decodeTensorScalar reduces a TensorProto to a single scalar. A one
// element tensor yields its value; larger tensors are reduced to their
// arithmetic mean; empty tensors yield no value.
func decodeTensorScalar(b []byte) (float64, bool, error) {
	var (
		dtype   uint64
		content []byte
		vals    []float64
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, false, fmt.Errorf("tensor field tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		switch {
		case num == tensorFieldDtype && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return 0, false, fmt.Errorf("dtype: %w", protowire.ParseError(m))
			}

			dtype = v
			b = b[m:]
		case num == tensorFieldContent && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return 0, false, fmt.Errorf("tensor_content: %w", protowire.ParseError(m))
			}

			content = v
			b = b[m:]
		case num == tensorFieldFloatVal && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return 0, false, fmt.Errorf("float_val: %w", protowire.ParseError(m))
			}

			for len(v) >= 4 {
				bits := binary.LittleEndian.Uint32(v[:4])
				vals = append(vals, float64(math.Float32frombits(bits)))
				v = v[4:]
			}

			b = b[m:]
		case num == tensorFieldFloatVal && typ == protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return 0, false, fmt.Errorf("float_val: %w", protowire.ParseError(m))
			}

			vals = append(vals, float64(math.Float32frombits(v)))
			b = b[m:]
		case num == tensorFieldDoubleVal && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return 0, false, fmt.Errorf("double_val: %w", protowire.ParseError(m))
			}

			for len(v) >= 8 {
				bits := binary.LittleEndian.Uint64(v[:8])
				vals = append(vals, math.Float64frombits(bits))
				v = v[8:]
			}

			b = b[m:]
		case num == tensorFieldDoubleVal && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return 0, false, fmt.Errorf("double_val: %w", protowire.ParseError(m))
			}

			vals = append(vals, math.Float64frombits(v))
			b = b[m:]
		case (num == tensorFieldIntVal || num == tensorFieldInt64Val) && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return 0, false, fmt.Errorf("int_val: %w", protowire.ParseError(m))
			}

			for len(v) > 0 {
				iv, k := protowire.ConsumeVarint(v)
				if k < 0 {
					return 0, false, fmt.Errorf("int_val element: %w", protowire.ParseError(k))
				}

				vals = append(vals, float64(int64(iv)))
				v = v[k:]
			}

			b = b[m:]
		case (num == tensorFieldIntVal || num == tensorFieldInt64Val) && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return 0, false, fmt.Errorf("int_val: %w", protowire.ParseError(m))
			}

			vals = append(vals, float64(int64(v)))
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return 0, false, fmt.Errorf("skipping tensor field %d: %w", num, protowire.ParseError(m))
			}

			b = b[m:]
		}
	}

	// Fall back to raw tensor_content when no typed values were present.
	if len(vals) == 0 && len(content) > 0 {
		decoded, err := decodeTensorContent(dtype, content)
		if err != nil {
			return 0, false, err
		}

		vals = decoded
	}

	switch len(vals) {
	case 0:
		return 0, false, nil
	case 1:
		return vals[0], true, nil
	default:
		var sum float64
		for _, v := range vals {
			sum += v
		}

		return sum / float64(len(vals)), true, nil
	}
}

func decodeTensorContent(dtype uint64, content []byte) ([]float64, error) {
	var vals []float64

	switch dtype {
	case dtFloat:
		for len(content) >= 4 {
			bits := binary.LittleEndian.Uint32(content[:4])
			vals = append(vals, float64(math.Float32frombits(bits)))
			content = content[4:]
		}
	case dtDouble:
		for len(content) >= 8 {
			bits := binary.LittleEndian.Uint64(content[:8])
			vals = append(vals, math.Float64frombits(bits))
			content = content[8:]
		}
	case dtInt32:
		for len(content) >= 4 {
			vals = append(vals, float64(int32(binary.LittleEndian.Uint32(content[:4]))))
			content = content[4:]
		}
	case dtInt64:
		for len(content) >= 8 {
			vals = append(vals, float64(int64(binary.LittleEndian.Uint64(content[:8]))))
			content = content[8:]
		}
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %d", dtype)
	}

	return vals, nil
}
