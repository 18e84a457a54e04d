package codec

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

type post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func TestByName(t *testing.T) {
	in := post{ID: 7, Title: "hello", Tags: []string{"go"}, UpdatedAt: time.Unix(1700000000, 0).UTC()}
	for _, name := range []string{"", NameJSON, NameMsgpack, NameCBOR} {
		c, err := ByName[post](name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%q encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%q decode: %v", name, err)
		}
		if out.ID != in.ID || out.Title != in.Title || !out.UpdatedAt.Equal(in.UpdatedAt) || len(out.Tags) != 1 {
			t.Fatalf("%q: got %+v want %+v", name, out, in)
		}
	}
	if _, err := ByName[post]("xml"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

func TestMsgpackUsesJSONTags(t *testing.T) {
	b, err := Msgpack[post]{}.Encode(post{ID: 1, Title: "x"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := Msgpack[map[string]any]{}.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["title"]; !ok {
		t.Fatalf("expected json tag names, got %v", m)
	}
}

func TestLimitCodec(t *testing.T) {
	c := Limit[string](JSON[string]{}, 8)
	b, _ := c.Encode("a long string value")
	if _, err := c.Decode(b); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	small, _ := c.Encode("ok")
	if v, err := c.Decode(small); err != nil || v != "ok" {
		t.Fatalf("v=%q err=%v", v, err)
	}
	if _, isLimit := Limit[string](JSON[string]{}, 0).(LimitCodec[string]); isLimit {
		t.Fatal("max<=0 must not wrap")
	}
}

func TestProtobufStruct(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	in, err := structpb.NewStruct(map[string]any{"id": 3, "title": "t"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if out.AsMap()["title"] != "t" || out.AsMap()["id"] != float64(3) {
		t.Fatalf("got %v", out.AsMap())
	}
}
