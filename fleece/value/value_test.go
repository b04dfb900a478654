package value

import (
	"strings"
	"testing"

	"github.com/couchbaselabs/fleece-go/fleece"
)

func encode(t *testing.T, build func(e *fleece.Encoder) error) []byte {
	t.Helper()
	w := fleece.NewMemoryWriter()
	e := fleece.NewEncoder(w)
	if err := build(e); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := e.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	return w.Bytes()
}

func TestRootScalarInt(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteInt(-7)
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsInt64()
	if err != nil {
		t.Fatal(err)
	}
	if got != -7 {
		t.Errorf("AsInt64() = %d, want -7", got)
	}
}

func TestRootScalarOutOfLineInt(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteInt(1 << 40)
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsInt64()
	if err != nil {
		t.Fatal(err)
	}
	if got != 1<<40 {
		t.Errorf("AsInt64() = %d, want %d", got, int64(1)<<40)
	}
}

func TestRootFloat(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteDouble(3.5)
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsFloat64()
	if err != nil {
		t.Fatal(err)
	}
	if got != 3.5 {
		t.Errorf("AsFloat64() = %v, want 3.5", got)
	}
}

func TestRootBool(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteBool(true)
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsBool()
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("AsBool() = false, want true")
	}
}

func TestRootNull(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteNull()
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Error("IsNull() = false, want true")
	}
}

func TestRootString(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteString([]byte("hello, fleece"))
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello, fleece" {
		t.Errorf("AsString() = %q, want %q", got, "hello, fleece")
	}
}

func TestRootTinyInlineString(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteString([]byte("x"))
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "x" {
		t.Errorf("AsString() = %q, want %q", got, "x")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		if err := e.BeginArray(3); err != nil {
			return err
		}
		if err := e.WriteInt(1); err != nil {
			return err
		}
		if err := e.WriteInt(2); err != nil {
			return err
		}
		if err := e.WriteInt(3); err != nil {
			return err
		}
		return e.EndArray()
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := v.AsArray()
	if err != nil {
		t.Fatal(err)
	}
	if arr.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", arr.Count())
	}
	for i, want := range []int64{1, 2, 3} {
		elem, err := arr.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		got, err := elem.AsInt64()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
	if _, err := arr.Get(3); err == nil {
		t.Error("expected out-of-range error for Get(3)")
	}
}

func TestDictRoundTrip(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		if err := e.BeginDict(2); err != nil {
			return err
		}
		if err := e.WriteKey([]byte("name")); err != nil {
			return err
		}
		if err := e.WriteString([]byte("fleece")); err != nil {
			return err
		}
		if err := e.WriteKey([]byte("version")); err != nil {
			return err
		}
		if err := e.WriteInt(2); err != nil {
			return err
		}
		return e.EndDict()
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	d, err := v.AsDict()
	if err != nil {
		t.Fatal(err)
	}
	if d.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", d.Count())
	}

	name, found, err := d.Get("name")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected to find key \"name\"")
	}
	gotName, err := name.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if gotName != "fleece" {
		t.Errorf("name = %q, want %q", gotName, "fleece")
	}

	if _, found, err := d.Get("missing"); err != nil || found {
		t.Errorf("Get(missing) = found=%v err=%v, want found=false err=nil", found, err)
	}

	seen := map[string]bool{}
	err = d.Iterate(func(key string, val Value) bool {
		seen[key] = true
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if !seen["name"] || !seen["version"] {
		t.Errorf("Iterate did not visit both keys: %v", seen)
	}
}

func TestNestedArrayInDict(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		if err := e.BeginDict(1); err != nil {
			return err
		}
		if err := e.WriteKey([]byte("tags")); err != nil {
			return err
		}
		if err := e.BeginArray(2); err != nil {
			return err
		}
		if err := e.WriteString([]byte("a")); err != nil {
			return err
		}
		if err := e.WriteString([]byte("b")); err != nil {
			return err
		}
		if err := e.EndArray(); err != nil {
			return err
		}
		return e.EndDict()
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	d, err := v.AsDict()
	if err != nil {
		t.Fatal(err)
	}
	tagsVal, found, err := d.Get("tags")
	if err != nil || !found {
		t.Fatalf("Get(tags) found=%v err=%v", found, err)
	}
	tags, err := tagsVal.AsArray()
	if err != nil {
		t.Fatal(err)
	}
	if tags.Count() != 2 {
		t.Fatalf("tags.Count() = %d, want 2", tags.Count())
	}
}

func TestWrongTypeAccessorReturnsError(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteString([]byte("not an int"))
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.AsInt64(); err == nil {
		t.Error("expected error reading a string as an int")
	}
}

func TestLargeArrayForcesCountVarint(t *testing.T) {
	const n = 3000
	doc := encode(t, func(e *fleece.Encoder) error {
		if err := e.BeginArray(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.WriteInt(int64(i)); err != nil {
				return err
			}
		}
		return e.EndArray()
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := v.AsArray()
	if err != nil {
		t.Fatal(err)
	}
	if arr.Count() != n {
		t.Fatalf("Count() = %d, want %d", arr.Count(), n)
	}
	last, err := arr.Get(n - 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := last.AsInt64()
	if err != nil {
		t.Fatal(err)
	}
	if got != n-1 {
		t.Errorf("Get(%d) = %d, want %d", n-1, got, n-1)
	}
}

// TestRootOddLengthTopLevelString guards against a regression where
// Encoder.End computed the tail position without padding the stream
// to even first: an odd-length out-of-line top-level string left the
// tail's halved pointer distance lossy, resolving to a byte in the
// middle of the string body instead of its start.
func TestRootOddLengthTopLevelString(t *testing.T) {
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteString([]byte("ab"))
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "ab" {
		t.Errorf("AsString() = %q, want %q", got, "ab")
	}
}

// TestWideRootValue exercises a root value far enough from the tail
// to force Encoder.End's wide-root path: the tail's narrow pointer
// lands on a second, wide-encoded pointer rather than the value
// itself, and Root must re-resolve that hop at wide width instead of
// misreading it as a narrow pointer.
func TestWideRootValue(t *testing.T) {
	big := strings.Repeat("x", 70000)
	doc := encode(t, func(e *fleece.Encoder) error {
		return e.WriteString([]byte(big))
	})
	v, err := Root(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if got != big {
		t.Errorf("AsString() length = %d, want %d", len(got), len(big))
	}
}
