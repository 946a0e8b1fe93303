package filterexpr

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var entryFields = map[string]Field{
	"headword":   {Kind: String, Ops: []Op{Eq, Prefix, In}},
	"favorite":   {Kind: Bool, Ops: []Op{Eq}},
	"difficulty": {Kind: Number, Ops: []Op{Gte, Lte}},
	"updated_at": {Kind: Timestamp, Ops: []Op{Gte}},
}

var entryOrder = OrderSpec{
	Keys:     []string{"updated_at", "headword", "id"},
	Default:  []OrderTerm{{Key: "updated_at", Desc: true}},
	Tiebreak: "id",
}

func TestParseConjunction(t *testing.T) {
	preds, err := Parse("headword.startsWith('ser') && favorite == true && difficulty >= 2 && difficulty <= 4 && updated_at >= timestamp('2025-01-01T00:00:00Z')", entryFields)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(preds) != 5 {
		t.Fatalf("expected 5 predicates, got %d", len(preds))
	}
	if preds[0].Field != "headword" || preds[0].Op != Prefix || preds[0].Str() != "ser" {
		t.Fatalf("unexpected prefix predicate: %+v", preds[0])
	}
	if preds[1].Op != Eq || !preds[1].Bool() {
		t.Fatalf("unexpected favorite predicate: %+v", preds[1])
	}
	if n, err := preds[2].Int(); err != nil || n != 2 || preds[2].Op != Gte {
		t.Fatalf("unexpected lower bound: %+v (%v)", preds[2], err)
	}
	if n, err := preds[3].Int(); err != nil || n != 4 || preds[3].Op != Lte {
		t.Fatalf("unexpected upper bound: %+v (%v)", preds[3], err)
	}
	if !preds[4].Time().Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", preds[4].Time())
	}
}

func TestParseInList(t *testing.T) {
	preds, err := Parse("headword in ['run', 'walk']", entryFields)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(preds) != 1 || preds[0].Op != In || !reflect.DeepEqual(preds[0].Strings(), []string{"run", "walk"}) {
		t.Fatalf("unexpected predicates: %+v", preds)
	}

	if preds, err := Parse("   ", entryFields); err != nil || preds != nil {
		t.Fatalf("blank filter should yield nothing, got %v, %v", preds, err)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"or":            "headword == 'a' || headword == 'b'",
		"not":           "!favorite",
		"unknown field": "color == 'red'",
		"bad operator":  "favorite >= true",
		"wrong literal": "favorite == 'yes'",
		"empty list":    "headword in []",
		"syntax":        "headword ==",
	}
	for name, filter := range cases {
		if _, err := Parse(filter, entryFields); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPredicateIntRejectsFraction(t *testing.T) {
	preds, err := Parse("difficulty >= 2.5", entryFields)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := preds[0].Int(); err == nil || !strings.Contains(err.Error(), "difficulty") {
		t.Fatalf("expected integer error, got %v", err)
	}
}

func TestParseOrder(t *testing.T) {
	cases := []struct {
		raw  string
		want []OrderTerm
	}{
		{"", []OrderTerm{{Key: "updated_at", Desc: true}, {Key: "id"}}},
		{"headword", []OrderTerm{{Key: "headword"}, {Key: "id"}}},
		{"headword DESC, updated_at", []OrderTerm{{Key: "headword", Desc: true}, {Key: "updated_at"}, {Key: "id"}}},
		{"id desc", []OrderTerm{{Key: "id", Desc: true}}},
	}
	for _, c := range cases {
		got, err := ParseOrder(c.raw, entryOrder)
		if err != nil {
			t.Fatalf("%q: %v", c.raw, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%q: got %+v want %+v", c.raw, got, c.want)
		}
	}

	for _, raw := range []string{"color desc", "headword sideways", "headword, id, updated_at", "id, id", "headword asc extra"} {
		if _, err := ParseOrder(raw, entryOrder); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}
