package tblog

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// appendRecord frames data as a TFRecord.
func appendRecord(buf, data []byte) []byte {
	var header [8]byte

	binary.LittleEndian.PutUint64(header[:], uint64(len(data)))
	buf = append(buf, header[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, maskedCRC32C(header[:]))
	buf = append(buf, data...)
	buf = binary.LittleEndian.AppendUint32(buf, maskedCRC32C(data))

	return buf
}

// encodeScalarEvent builds a V1 event record carrying one simple_value.
func encodeScalarEvent(step int64, wallTime float64, tag string, value float32) []byte {
	var sv []byte

	sv = protowire.AppendTag(sv, valueFieldTag, protowire.BytesType)
	sv = protowire.AppendBytes(sv, []byte(tag))
	sv = protowire.AppendTag(sv, valueFieldSimpleValue, protowire.Fixed32Type)
	sv = protowire.AppendFixed32(sv, math.Float32bits(value))

	var summary []byte

	summary = protowire.AppendTag(summary, summaryFieldValue, protowire.BytesType)
	summary = protowire.AppendBytes(summary, sv)

	return encodeEventWithSummary(step, wallTime, summary)
}

// encodeTensorEvent builds a V2 event record carrying a double tensor.
func encodeTensorEvent(step int64, wallTime float64, tag string, values ...float64) []byte {
	var packed []byte
	for _, v := range values {
		packed = binary.LittleEndian.AppendUint64(packed, math.Float64bits(v))
	}

	var tensor []byte

	tensor = protowire.AppendTag(tensor, tensorFieldDtype, protowire.VarintType)
	tensor = protowire.AppendVarint(tensor, dtDouble)
	tensor = protowire.AppendTag(tensor, tensorFieldDoubleVal, protowire.BytesType)
	tensor = protowire.AppendBytes(tensor, packed)

	var sv []byte

	sv = protowire.AppendTag(sv, valueFieldTag, protowire.BytesType)
	sv = protowire.AppendBytes(sv, []byte(tag))
	sv = protowire.AppendTag(sv, valueFieldTensor, protowire.BytesType)
	sv = protowire.AppendBytes(sv, tensor)

	var summary []byte

	summary = protowire.AppendTag(summary, summaryFieldValue, protowire.BytesType)
	summary = protowire.AppendBytes(summary, sv)

	return encodeEventWithSummary(step, wallTime, summary)
}

func encodeEventWithSummary(step int64, wallTime float64, summary []byte) []byte {
	var ev []byte

	ev = protowire.AppendTag(ev, eventFieldWallTime, protowire.Fixed64Type)
	ev = protowire.AppendFixed64(ev, math.Float64bits(wallTime))
	ev = protowire.AppendTag(ev, eventFieldStep, protowire.VarintType)
	ev = protowire.AppendVarint(ev, uint64(step))
	ev = protowire.AppendTag(ev, eventFieldSummary, protowire.BytesType)
	ev = protowire.AppendBytes(ev, summary)

	return ev
}

func writeEventFile(t *testing.T, dir, name string, records ...[]byte) string {
	t.Helper()

	var buf []byte
	for _, r := range records {
		buf = appendRecord(buf, r)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	return path
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestParseDirScalarSummaries(t *testing.T) {
	dir := t.TempDir()
	values := []float32{101.2, 100.5, 102.1, 99.8, 101.5}

	records := make([][]byte, 0, len(values))
	for i, v := range values {
		records = append(records, encodeScalarEvent(int64(i), 1000.5+float64(i), "wall_time", v))
	}

	writeEventFile(t, dir, "events.out.tfevents.1700000000.runner", records...)

	series, err := NewParser(testLogger(), []string{"wall_time"}).ParseDir(dir)
	require.NoError(t, err)
	require.Contains(t, series, "wall_time")

	ts := series["wall_time"]
	require.Len(t, ts.Points, 5)

	for i, p := range ts.Points {
		assert.Equal(t, int64(i), p.Step)
		assert.InDelta(t, float64(values[i]), p.Value, 1e-4)
		assert.InDelta(t, 1000.5+float64(i), p.WallTime, 1e-9)
	}
}

func TestParseDirTensorSummaries(t *testing.T) {
	dir := t.TempDir()
	writeEventFile(t, dir, "events.out.tfevents.1700000000.runner",
		encodeTensorEvent(0, 1.0, "throughput", 5000),
		encodeTensorEvent(1, 2.0, "throughput", 5200),
		// Multi-element tensors reduce to their mean.
		encodeTensorEvent(2, 3.0, "throughput", 5000, 6000),
	)

	series, err := NewParser(testLogger(), []string{"throughput"}).ParseDir(dir)
	require.NoError(t, err)

	ts := series["throughput"]
	require.Len(t, ts.Points, 3)
	assert.Equal(t, []float64{5000, 5200, 5500}, ts.Values())
}

func TestParseDirAccumulatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()

	older := writeEventFile(t, dir, "events.out.tfevents.1.a",
		encodeScalarEvent(0, 1.0, "latency", 10))
	newer := writeEventFile(t, dir, "events.out.tfevents.2.b",
		encodeScalarEvent(1, 2.0, "latency", 20))

	// Force deterministic modification order.
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, series["latency"].Values())
}

func TestParseDirIgnoresUnknownTags(t *testing.T) {
	dir := t.TempDir()
	writeEventFile(t, dir, "events.out.tfevents.1.a",
		encodeScalarEvent(0, 1.0, "latency", 10),
		encodeScalarEvent(0, 1.0, "not_requested", 99))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{10}, series["latency"].Values())
}

func TestParseDirMissingTagYieldsEmptySeries(t *testing.T) {
	dir := t.TempDir()
	writeEventFile(t, dir, "events.out.tfevents.1.a",
		encodeScalarEvent(0, 1.0, "latency", 10))

	series, err := NewParser(testLogger(), []string{"latency", "memory"}).ParseDir(dir)
	require.NoError(t, err)
	require.Contains(t, series, "memory")
	assert.True(t, series["memory"].Empty())
}

func TestParseDirSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "events.out.tfevents.1.bad")
	require.NoError(t, os.WriteFile(bad, []byte("this is not a tfrecord file"), 0o644))

	good := writeEventFile(t, dir, "events.out.tfevents.2.good",
		encodeScalarEvent(0, 1.0, "latency", 10))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(bad, base, base))
	require.NoError(t, os.Chtimes(good, base.Add(time.Minute), base.Add(time.Minute)))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, series["latency"].Values())
}

func TestParseDirKeepsPointsBeforeCorruption(t *testing.T) {
	dir := t.TempDir()

	var buf []byte

	buf = appendRecord(buf, encodeScalarEvent(0, 1.0, "latency", 10))
	buf = append(buf, []byte("trailing garbage that is not a record")...)

	path := filepath.Join(dir, "events.out.tfevents.1.partial")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, series["latency"].Values())
}

func TestParseDirIgnoresNonEventFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	assert.True(t, series["latency"].Empty())
}

func TestRecordChecksumMismatch(t *testing.T) {
	data := encodeScalarEvent(0, 1.0, "latency", 10)
	framed := appendRecord(nil, data)

	// Flip a payload byte so the data checksum fails.
	framed[12] ^= 0xff

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "events.out.tfevents.1.a"), framed, 0o644))

	series, err := NewParser(testLogger(), []string{"latency"}).ParseDir(dir)
	require.NoError(t, err)
	assert.True(t, series["latency"].Empty())
}
