package jsonbridge

import (
	"github.com/google/uuid"

	"github.com/couchbaselabs/fleece-go/fleece"
)

// Stats summarizes one encode run, for `fleece stats` reporting and for
// correlating repeated encode runs in logs.
type Stats struct {
	ID               uuid.UUID
	DocumentBytes    int
	NarrowContainers int
	WideContainers   int
	InternedStrings  int
}

// EncodeToDocument parses data as JSON, encodes it with opts, and
// returns the finished document bytes alongside a Stats summary of the
// run.
func EncodeToDocument(data []byte, opts fleece.Options) (Stats, []byte, error) {
	w := fleece.NewMemoryWriter()
	enc := fleece.NewEncoderWithOptions(w, opts)
	if err := Encode(enc, data); err != nil {
		return Stats{}, nil, err
	}
	if err := enc.End(); err != nil {
		return Stats{}, nil, err
	}
	doc := w.Bytes()
	stats := Stats{
		ID:               uuid.New(),
		DocumentBytes:    len(doc),
		NarrowContainers: enc.NumNarrow,
		WideContainers:   enc.NumWide,
		InternedStrings:  enc.NumSavedStrings,
	}
	return stats, doc, nil
}
