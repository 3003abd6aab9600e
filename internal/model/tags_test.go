package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected Tags
	}{
		{"empty", nil, Tags{}},
		{"lowercase and trim", []string{"  Music ", "LIVE"}, Tags{"music", "live"}},
		{"dedupe after normalizing", []string{"#Lofi", "lofi", "LOFI"}, Tags{"lofi"}},
		{"separator removed", []string{"rock,pop"}, Tags{"rock pop"}},
		{"blank dropped", []string{" ", "#", ""}, Tags{}},
		{"inner whitespace collapsed", []string{"road   trip"}, Tags{"road trip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeTags_Bounds(t *testing.T) {
	var raw []string
	for i := 0; i < MaxTags+5; i++ {
		raw = append(raw, strings.Repeat("x", i+1))
	}
	if got := NormalizeTags(raw); len(got) != MaxTags {
		t.Errorf("len(NormalizeTags()) = %d, want %d", len(got), MaxTags)
	}

	long := NormalizeTag(strings.Repeat("a", MaxTagLength+10))
	if len(long) != MaxTagLength {
		t.Errorf("len(NormalizeTag()) = %d, want %d", len(long), MaxTagLength)
	}
}

func TestTags_ValueScan(t *testing.T) {
	v, err := Tags{"a", "b c"}.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != ",a,b c," {
		t.Errorf("Value() = %q, want %q", v, ",a,b c,")
	}

	empty, _ := Tags{}.Value()
	if empty != "" {
		t.Errorf("Value() of empty tags = %q, want empty", empty)
	}

	var tags Tags
	if err := tags.Scan([]byte(",a,b c,")); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !reflect.DeepEqual(tags, Tags{"a", "b c"}) {
		t.Errorf("Scan() = %v", tags)
	}
	if err := tags.Scan(nil); err != nil || len(tags) != 0 {
		t.Errorf("Scan(nil) = %v, %v", tags, err)
	}
	if err := tags.Scan(42); err == nil {
		t.Error("Scan(int) expected error")
	}
}

func TestTagPattern(t *testing.T) {
	if got := TagPattern(" #Music "); got != "%,music,%" {
		t.Errorf("TagPattern() = %q, want %q", got, "%,music,%")
	}
}

func TestProperty_TagsStorageRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized tags survive storage", prop.ForAll(
		func(raw []string) bool {
			tags := NormalizeTags(raw)
			v, err := tags.Value()
			if err != nil {
				return false
			}
			var back Tags
			if err := back.Scan(v); err != nil {
				return false
			}
			return reflect.DeepEqual(back, tags)
		},
		gen.SliceOf(gen.RegexMatch(`[A-Za-z#, ]{0,12}`)),
	))

	properties.TestingRun(t)
}

func TestPlatform(t *testing.T) {
	if !PlatformVimeo.Valid() || Platform("myspace").Valid() {
		t.Error("Valid() mismatch")
	}
	if PlatformTikTok.DisplayName() != "TikTok" || Platform("x").DisplayName() != "Other" {
		t.Error("DisplayName() mismatch")
	}
}
