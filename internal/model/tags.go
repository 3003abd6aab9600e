package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

const (
	// MaxTags is the maximum number of tags stored on a video
	MaxTags = 20
	// MaxTagLength is the maximum length of a single tag
	MaxTagLength = 50
	tagSeparator = ","
)

// Tags is a set of lowercase tag strings stored as a delimited text column.
// The stored form is wrapped in separators (",a,b,") so a single tag can be
// matched exactly with LIKE '%,tag,%'.
type Tags []string

// NormalizeTags lowercases, trims, dedupes and bounds a list of raw tags
func NormalizeTags(raw []string) Tags {
	seen := make(map[string]bool)
	tags := Tags{}
	for _, t := range raw {
		t = NormalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// NormalizeTag lowercases and trims one tag. Separators and a leading '#'
// are removed.
func NormalizeTag(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimPrefix(t, "#")
	t = strings.ReplaceAll(t, tagSeparator, " ")
	t = strings.Join(strings.Fields(t), " ")
	if len(t) > MaxTagLength {
		t = strings.TrimSpace(t[:MaxTagLength])
	}
	return t
}

// Contains reports whether the set holds tag
func (t Tags) Contains(tag string) bool {
	for _, e := range t {
		if e == tag {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "", nil
	}
	return tagSeparator + strings.Join(t, tagSeparator) + tagSeparator, nil
}

// Scan implements sql.Scanner
func (t *Tags) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("model.Tags: cannot scan %T", src)
	}

	tags := Tags{}
	for _, e := range strings.Split(s, tagSeparator) {
		if e != "" {
			tags = append(tags, e)
		}
	}
	*t = tags
	return nil
}

// TagPattern returns the LIKE pattern matching a single stored tag
func TagPattern(tag string) string {
	return "%" + tagSeparator + NormalizeTag(tag) + tagSeparator + "%"
}
