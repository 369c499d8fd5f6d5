package records

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func admision() Record {
	return Record{
		{Name: "fecha", Value: "2024-01-01"},
		{Name: "detalle", Value: "Admisión"},
	}
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		{Name: "fecha", Value: "2024-01-01"},
		{Name: PositionalName(1), Value: "Acuerdo"},
	}

	v, ok := r.Get("fecha")
	require.True(t, ok)
	require.Equal(t, "2024-01-01", v)

	v, ok = r.Get("columna_1")
	require.True(t, ok)
	require.Equal(t, "Acuerdo", v)

	_, ok = r.Get("juzgado")
	require.False(t, ok)

	v, ok = r.At(0)
	require.True(t, ok)
	require.Equal(t, "2024-01-01", v)

	_, ok = r.At(2)
	require.False(t, ok)
}

func TestSignatureStability(t *testing.T) {
	require.Equal(t, admision().Signature(), admision().Signature())
	require.Equal(t, `"fecha"="2024-01-01"|"detalle"="Admisión"`, admision().Signature())

	reordered := Record{
		{Name: "detalle", Value: "Admisión"},
		{Name: "fecha", Value: "2024-01-01"},
	}
	require.NotEqual(t, admision().Signature(), reordered.Signature())

	require.Equal(t, "", RecordSet{}.Signature())
	require.Equal(t, admision().Signature(), RecordSet{admision()}.Signature())
}

func TestSignatureSeparatorsInValues(t *testing.T) {
	// scraped cell text can contain the separator characters; the
	// quoting must keep differently-structured records distinct
	oneField := Record{{Name: "a", Value: "b|c=d"}}
	twoFields := Record{{Name: "a", Value: "b"}, {Name: "c", Value: "d"}}
	require.NotEqual(t, oneField.Signature(), twoFields.Signature())

	d, _ := Detect(RecordSet{oneField}.Signature(), RecordSet{twoFields})
	require.Equal(t, Changed, d)

	nameCollision := Record{{Name: `a"="b`, Value: "c"}}
	valueCollision := Record{{Name: "a", Value: `b"="c`}}
	require.NotEqual(t, nameCollision.Signature(), valueCollision.Signature())
}

func TestDetectEmpty(t *testing.T) {
	d, sig := Detect("", nil)
	require.Equal(t, Empty, d)
	require.Equal(t, "", sig)

	d, _ = Detect("whatever", RecordSet{})
	require.Equal(t, Empty, d)
}

func TestDetectFirstObservation(t *testing.T) {
	rs := RecordSet{admision()}
	d, sig := Detect("", rs)
	require.Equal(t, Changed, d)
	require.Equal(t, rs.Signature(), sig)
}

func TestDetectIdempotent(t *testing.T) {
	// re-detecting against a set's own signature never reports a
	// change, regardless of how many rows precede the last one
	sets := []RecordSet{
		{admision()},
		{admision(), {{Name: "fecha", Value: "2024-02-10"}, {Name: "detalle", Value: "Acuerdo"}}},
		{{{Name: PositionalName(0), Value: "x"}}},
	}
	for _, rs := range sets {
		d, _ := Detect(rs.Signature(), rs)
		require.Equal(t, Unchanged, d)
	}
}

func TestDetectNewLastRow(t *testing.T) {
	prev := RecordSet{admision()}
	next := RecordSet{
		admision(),
		{{Name: "fecha", Value: "2024-03-05"}, {Name: "detalle", Value: "Sentencia"}},
	}
	d, sig := Detect(prev.Signature(), next)
	require.Equal(t, Changed, d)
	require.Equal(t, next.Signature(), sig)
}

func TestDetectRepeatedLastRow(t *testing.T) {
	// same last row, different earlier rows: reported as unchanged,
	// the source system only ever appends at the end
	prev := RecordSet{admision()}
	next := RecordSet{
		{{Name: "fecha", Value: "2023-12-20"}, {Name: "detalle", Value: "Radicación"}},
		admision(),
	}
	d, _ := Detect(prev.Signature(), next)
	require.Equal(t, Unchanged, d)
}

func TestTail(t *testing.T) {
	rs := RecordSet{
		{{Name: "detalle", Value: "a"}},
		{{Name: "detalle", Value: "b"}},
		{{Name: "detalle", Value: "c"}},
		{{Name: "detalle", Value: "d"}},
	}
	require.Len(t, rs.Tail(3), 3)
	v, _ := rs.Tail(3)[0].Get("detalle")
	require.Equal(t, "b", v)
	require.Len(t, rs.Tail(10), 4)
	require.Nil(t, RecordSet{}.Last())
}

func TestJSONRoundTrip(t *testing.T) {
	rs := RecordSet{
		admision(),
		{{Name: PositionalName(0), Value: "Notificación"}},
	}
	raw, err := rs.EncodeJSON()
	require.NoError(t, err)

	back, err := DecodeJSON(raw)
	require.NoError(t, err)
	require.Equal(t, rs, back)
	require.Equal(t, rs.Signature(), back.Signature())
}
