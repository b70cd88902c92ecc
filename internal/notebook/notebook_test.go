package notebook

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/nbbadge/internal/apperr"
)

// jupyterFormatted is laid out exactly as Jupyter writes it.
const jupyterFormatted = `{
 "cells": [
  {
   "cell_type": "code",
   "execution_count": null,
   "metadata": {},
   "outputs": [],
   "source": [
    "print(1)"
   ]
  }
 ],
 "metadata": {
  "kernelspec": {
   "display_name": "Python 3",
   "language": "python",
   "name": "python3"
  }
 },
 "nbformat": 4,
 "nbformat_minor": 4
}
`

func TestRoundTrip_ByteIdentical(t *testing.T) {
	doc, err := Decode([]byte(jupyterFormatted), Version)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if diff := cmp.Diff(jupyterFormatted, string(out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_PreservesUnknownFields(t *testing.T) {
	input := `{"nbformat":4,"nbformat_minor":2,"custom_top":{"b":1,"a":[1.5,2]},
	"metadata":{"colab":{"provenance":[]},"language_info":{"name":"python"}},
	"cells":[{"cell_type":"markdown","metadata":{"tags":["x"]},"attachments":{"img.png":{"image/png":"AAAA"}},"source":"# Title"},
	{"cell_type":"raw","metadata":{},"source":["a\n","b"]}]}`

	doc, err := Decode([]byte(input), Version)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var want, got any
	if err := json.Unmarshal([]byte(input), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields lost in round trip (-want +got):\n%s", diff)
	}
}

func TestCellAccessors(t *testing.T) {
	input := `{"nbformat":4,"nbformat_minor":5,"metadata":{},"cells":[
	{"cell_type":"code","id":"abc","metadata":{},"outputs":[],"execution_count":1,"source":["x = 1\n","print(x)"]},
	{"cell_type":"markdown","metadata":{},"source":"plain string"}]}`
	doc, err := Decode([]byte(input), Version)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Cells) != 2 {
		t.Fatalf("len(cells) = %d, want 2", len(doc.Cells))
	}
	if got := doc.Cells[0].Type(); got != CellCode {
		t.Errorf("type = %q, want %q", got, CellCode)
	}
	if got := doc.Cells[0].Source(); got != "x = 1\nprint(x)" {
		t.Errorf("source = %q", got)
	}
	if got := doc.Cells[0].ID(); got != "abc" {
		t.Errorf("id = %q, want %q", got, "abc")
	}
	if got := doc.Cells[1].Source(); got != "plain string" {
		t.Errorf("source = %q", got)
	}
	if !doc.SupportsCellIDs() {
		t.Error("4.5 should support cell ids")
	}
}

func TestNewMarkdownCell(t *testing.T) {
	c := NewMarkdownCell("<a href=\"x\">\n  <img/>\n</a>")
	if c.Type() != CellMarkdown {
		t.Errorf("type = %q", c.Type())
	}
	raw, ok := c.Field("source")
	if !ok {
		t.Fatal("source missing")
	}
	want := `["<a href=\"x\">\n","  <img/>\n","</a>"]`
	if string(raw) != want {
		t.Errorf("source = %s, want %s", raw, want)
	}
	if c.ID() != "" {
		t.Errorf("new cell should have no id, got %q", c.ID())
	}
	c.SetID("0123abcd")
	if c.ID() != "0123abcd" {
		t.Errorf("id = %q", c.ID())
	}
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	doc, err := Decode([]byte(`{"nbformat":4,"nbformat_minor":4,"metadata":{},"cells":[]}`), Version)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	doc.InsertCell(0, NewMarkdownCell(`<a target="_blank" href="https://x/y?a=1&b=2">`))
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(out), `"<a target=\"_blank\" href=\"https://x/y?a=1&b=2\">"`) {
		t.Errorf("markup was escaped:\n%s", out)
	}
	if !strings.HasSuffix(string(out), "}\n") {
		t.Error("missing trailing newline")
	}
}

func TestInsertAndRemoveCell(t *testing.T) {
	doc := &Document{}
	doc.InsertCell(0, NewMarkdownCell("b"))
	doc.InsertCell(0, NewMarkdownCell("a"))
	doc.InsertCell(5, NewMarkdownCell("c"))

	var got []string
	for _, c := range doc.Cells {
		got = append(got, c.Source())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	removed := doc.RemoveCell(0)
	if removed.Source() != "a" || len(doc.Cells) != 2 || doc.Cells[0].Source() != "b" {
		t.Errorf("remove: removed=%q remaining=%d", removed.Source(), len(doc.Cells))
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{"cells": [`,
		"not an object":    `[1, 2]`,
		"missing cells":    `{"nbformat":4,"nbformat_minor":4,"metadata":{}}`,
		"cells not array":  `{"nbformat":4,"nbformat_minor":4,"cells":{}}`,
		"cell no type":     `{"nbformat":4,"nbformat_minor":4,"cells":[{"source":""}]}`,
		"source bad type":  `{"nbformat":4,"nbformat_minor":4,"cells":[{"cell_type":"code","source":5}]}`,
		"old major":        `{"nbformat":3,"nbformat_minor":0,"cells":[]}`,
		"version a string": `{"nbformat":"4","nbformat_minor":4,"cells":[]}`,
		"empty file":       ``,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input), Version)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, apperr.ErrMalformedDocument) {
				t.Errorf("err = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestDecode_OldFormatNamesConversion(t *testing.T) {
	v3 := `{"metadata":{},"nbformat":3,"nbformat_minor":0,"worksheets":[{"cells":[]}]}`
	_, err := Decode([]byte(v3), Version)
	if !errors.Is(err, apperr.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
	for _, want := range []string{"nbformat 3 not supported", "jupyter nbconvert"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %q, want it to contain %q", err, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"one", []string{"one"}},
		{"a\nb", []string{"a\n", "b"}},
		{"a\nb\n", []string{"a\n", "b\n"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, SplitLines(tc.in)); diff != "" {
			t.Errorf("SplitLines(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}
