package core

import (
	"testing"
	"time"

	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentMUS_RoundTrip(t *testing.T) {
	f := Fragment{
		Id:          7,
		DocId:       3,
		Type:        FragmentTypeTable,
		Content:     "a,b\n1,2",
		Captions:    []string{"Table 1"},
		Footnotes:   []string{"source: survey"},
		PageIndex:   4,
		Order:       2,
		Description: "a two column table",
		Vector:      []float32{0.6, 0.8},
		Entities:    []EntityRef{{EntityId: 11, Weight: 3}},
		InsertedAt:  time.Unix(0, 1700000000000000000).UTC(),
	}

	bs := make([]byte, FragmentMUS.Size(f))
	n := FragmentMUS.Marshal(f, bs)
	require.Equal(t, len(bs), n)

	got, m, err := FragmentMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, n, m)
	assert.Equal(t, f, got)
}

// Element counts come off disk, so a flipped bit can claim billions of
// elements or a negative count. Decoding must fail cleanly instead of
// allocating or panicking.
func TestUnmarshalStrings_CorruptCount(t *testing.T) {
	for name, count := range map[string]int{"huge": 1 << 40, "negative": -3} {
		t.Run(name, func(t *testing.T) {
			bs := make([]byte, varint.Int.Size(count))
			varint.Int.Marshal(count, bs)

			_, _, err := unmarshalStrings(bs)
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestUnmarshalVector_CorruptCount(t *testing.T) {
	// A modest count still fails when the buffer cannot hold it.
	bs := make([]byte, varint.Int.Size(8))
	varint.Int.Marshal(8, bs)

	_, _, err := unmarshalVector(bs)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestFragmentMUS_UnmarshalTruncatedEntityRefs(t *testing.T) {
	f := Fragment{
		Id:       1,
		DocId:    2,
		Type:     FragmentTypeText,
		Content:  "body",
		Entities: []EntityRef{{EntityId: 5, Weight: 1}, {EntityId: 6, Weight: 2}},
	}
	bs := make([]byte, FragmentMUS.Size(f))
	FragmentMUS.Marshal(f, bs)

	// Cut everything after the entity count so the declared refs exceed
	// the bytes left in the record.
	refBytes := 0
	for _, ref := range f.Entities {
		refBytes += IDMUS.Size(ref.EntityId) + varint.Int.Size(ref.Weight)
	}
	truncated := bs[:len(bs)-refBytes-2*sizeTime(time.Time{})]

	_, _, err := FragmentMUS.Unmarshal(truncated)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
