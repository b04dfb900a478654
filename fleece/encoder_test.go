package fleece

import (
	"testing"
)

func encode(t *testing.T, build func(e *Encoder) error) []byte {
	t.Helper()
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := build(e); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := e.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	return w.Bytes()
}

func TestEmptyDict(t *testing.T) {
	doc := encode(t, func(e *Encoder) error {
		if err := e.BeginDict(0); err != nil {
			return err
		}
		return e.EndDict()
	})
	if len(doc) != 2 {
		t.Fatalf("len(doc) = %d, want 2", len(doc))
	}
	if Tag(doc[0]>>4) != TagDict {
		t.Errorf("tag = %v, want dict", Tag(doc[0]>>4))
	}
	if doc[0]&0x80 != 0 {
		t.Errorf("empty dict root should not be a pointer")
	}
}

func TestSmallInt(t *testing.T) {
	doc := encode(t, func(e *Encoder) error {
		return e.WriteInt(42)
	})
	if len(doc) != 2 {
		t.Fatalf("len(doc) = %d, want 2", len(doc))
	}
	if Tag(doc[0]>>4) != TagShortInt {
		t.Errorf("tag = %v, want shortint", Tag(doc[0]>>4))
	}
	got := int16(doc[0]&0x0F)<<8 | int16(doc[1])
	// sign-extend from 12 bits
	if got&0x0800 != 0 {
		got |= ^int16(0x0FFF)
	}
	if got != 42 {
		t.Errorf("value = %d, want 42", got)
	}
}

func TestSmallIntNegative(t *testing.T) {
	doc := encode(t, func(e *Encoder) error {
		return e.WriteInt(-1)
	})
	if doc[0]&0x0F != 0x0F || doc[1] != 0xFF {
		t.Errorf("doc = % x, want 12-bit -1 pattern", doc)
	}
}

func TestInterning(t *testing.T) {
	doc := encode(t, func(e *Encoder) error {
		if err := e.BeginArray(2); err != nil {
			return err
		}
		if err := e.WriteString([]byte("repeated")); err != nil {
			return err
		}
		if err := e.WriteString([]byte("repeated")); err != nil {
			return err
		}
		return e.EndArray()
	})

	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.BeginArray(2); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteString([]byte("repeated")); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteString([]byte("repeated")); err != nil {
		t.Fatal(err)
	}
	if err := e.EndArray(); err != nil {
		t.Fatal(err)
	}
	if e.NumSavedStrings != 1 {
		t.Errorf("NumSavedStrings = %d, want 1", e.NumSavedStrings)
	}
	if err := e.End(); err != nil {
		t.Fatal(err)
	}
	if len(doc) == 0 {
		t.Fatal("empty doc")
	}
}

func TestKeySortOrder(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.BeginDict(3); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"zebra", "apple", "mango"} {
		if err := e.WriteKey([]byte(k)); err != nil {
			t.Fatal(err)
		}
		if err := e.WriteInt(1); err != nil {
			t.Fatal(err)
		}
	}
	items := &e.stack[e.depth-1]
	sortDict(items)
	var order []string
	for _, k := range items.keys {
		order = append(order, string(k))
	}
	want := []string{"apple", "mango", "zebra"}
	for i, k := range want {
		if order[i] != k {
			t.Errorf("order[%d] = %q, want %q", i, order[i], k)
		}
	}
}

func TestWidePromotionOnLargeBody(t *testing.T) {
	big := make([]byte, 70000)
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.BeginArray(2); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteData(big); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteInt(1); err != nil {
		t.Fatal(err)
	}
	if err := e.EndArray(); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err != nil {
		t.Fatal(err)
	}
	doc := w.Bytes()
	if len(doc) < 70000 {
		t.Fatalf("doc too short: %d", len(doc))
	}
}

func TestMisuseValueBeforeKey(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.BeginDict(1); err != nil {
		t.Fatal(err)
	}
	err := e.WriteInt(1)
	if err == nil {
		t.Fatal("expected error writing a value before a key")
	}
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != ErrMisuse {
		t.Errorf("err = %v, want ErrMisuse", err)
	}
}

func TestMisuseUnclosedContainer(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.BeginArray(1); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err == nil {
		t.Fatal("expected error ending with unclosed array")
	}
}

func TestMisuseTopLevelMultipleValues(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.WriteInt(1); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteInt(2); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err == nil {
		t.Fatal("expected error for multiple top-level values")
	}
}

func TestWriteFloatNaN(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	err := e.WriteFloat(float32(nan()))
	if err == nil {
		t.Fatal("expected error writing NaN")
	}
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != ErrValueDomain {
		t.Errorf("err = %v, want ErrValueDomain", err)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestReset(t *testing.T) {
	w1 := NewMemoryWriter()
	e := NewEncoder(w1)
	if err := e.WriteInt(1); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err != nil {
		t.Fatal(err)
	}

	w2 := NewMemoryWriter()
	e.Reset(w2)
	if err := e.WriteInt(2); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err != nil {
		t.Fatal(err)
	}
	if len(w2.Bytes()) != 2 {
		t.Errorf("len(w2.Bytes()) = %d, want 2", len(w2.Bytes()))
	}
}

func TestFinalizedEncoderRejectsWrites(t *testing.T) {
	w := NewMemoryWriter()
	e := NewEncoder(w)
	if err := e.WriteInt(1); err != nil {
		t.Fatal(err)
	}
	if err := e.End(); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteInt(2); err == nil {
		t.Fatal("expected error writing after End")
	}
}

func TestNestedArrayDictRoundTripShape(t *testing.T) {
	doc := encode(t, func(e *Encoder) error {
		if err := e.BeginDict(2); err != nil {
			return err
		}
		if err := e.WriteKey([]byte("name")); err != nil {
			return err
		}
		if err := e.WriteString([]byte("fleece")); err != nil {
			return err
		}
		if err := e.WriteKey([]byte("tags")); err != nil {
			return err
		}
		if err := e.BeginArray(2); err != nil {
			return err
		}
		if err := e.WriteInt(1); err != nil {
			return err
		}
		if err := e.WriteInt(2); err != nil {
			return err
		}
		if err := e.EndArray(); err != nil {
			return err
		}
		return e.EndDict()
	})
	if len(doc) == 0 {
		t.Fatal("empty document")
	}
	if Tag(doc[len(doc)-2]>>4) != TagDict && doc[len(doc)-2]&0x80 == 0 {
		t.Errorf("expected tail to resolve a dict or a pointer to one")
	}
}
