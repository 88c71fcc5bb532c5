package nexus

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampTime(t *testing.T) {
	// 2024-01-15T00:00:00Z in nanoseconds.
	ts := Timestamp(1705276800 * int64(time.Second))
	expected := time.UnixMilli(1705276800000)
	if got := ts.Time(); !got.Equal(expected) {
		t.Fatalf("unexpected time %s; expecting %s", got, expected)
	}

	// Sub-millisecond precision is truncated, not rounded.
	ts = Timestamp(1705276800*int64(time.Second) + 999999)
	if got := ts.Time(); !got.Equal(expected) {
		t.Fatalf("unexpected time %s; expecting truncation to %s", got, expected)
	}
}

func TestOptionJSON(t *testing.T) {
	data, err := json.Marshal(Some(UniqueID(42)))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(data) != "42" {
		t.Fatalf("unexpected json %q; expecting %q", data, "42")
	}

	data, err = json.Marshal(None[UniqueID]())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(data) != "null" {
		t.Fatalf("unexpected json %q; expecting %q", data, "null")
	}

	var o Option[UniqueID]
	if err := json.Unmarshal([]byte("7"), &o); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v, ok := o.Get(); !ok || v != 7 {
		t.Fatalf("unexpected option %v, %v; expecting Some(7)", v, ok)
	}

	if err := json.Unmarshal([]byte("null"), &o); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !o.IsNone() {
		t.Fatalf("expecting None after decoding null")
	}
}

func TestOptionValueOr(t *testing.T) {
	if got := Some("hindi").ValueOr("english"); got != "hindi" {
		t.Fatalf("unexpected value %q; expecting %q", got, "hindi")
	}
	if got := None[string]().ValueOr("english"); got != "english" {
		t.Fatalf("unexpected value %q; expecting %q", got, "english")
	}
}

func TestCommentJSONRoundTrip(t *testing.T) {
	in := `{"id":3,"articleId":12,"postId":null,"authorName":"Asha","authorPrincipal":"ryjl3-tyaaa-aaaaa-aaaba-cai","body":"good report","createdAt":1705276800000000000}`

	var c Comment
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if id, ok := c.ArticleID.Get(); !ok || id != 12 {
		t.Fatalf("unexpected articleId %v, %v; expecting Some(12)", id, ok)
	}
	if !c.PostID.IsNone() {
		t.Fatalf("expecting absent postId")
	}
	if c.AuthorName != "Asha" || c.Body != "good report" {
		t.Fatalf("unexpected comment %+v", c)
	}
}
