package model

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/AplusKminus/GraphWalker/internal/errors"
)

// NormalizeName NFC-normalizes s and trims surrounding whitespace.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// RequireName normalizes s and rejects blank results. kind names the entity
// in the error ("graph", "node", ...).
func RequireName(kind, s string) (string, error) {
	name := NormalizeName(s)
	if name == "" {
		return "", errors.Invalidf("%s name must not be blank", kind)
	}
	return name, nil
}

// NormalizeTags normalizes every tag, drops blanks and removes duplicates
// while keeping first-seen order. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = NormalizeName(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// AddTag appends tag unless it is blank or already present. The boolean
// reports whether tags changed.
func AddTag(tags []string, tag string) ([]string, bool) {
	tag = NormalizeName(tag)
	if tag == "" {
		return tags, false
	}
	for _, t := range tags {
		if t == tag {
			return tags, false
		}
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag), true
}

// RemoveTag removes every occurrence of tag.
func RemoveTag(tags []string, tag string) ([]string, bool) {
	tag = NormalizeName(tag)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out, len(out) != len(tags)
}

// ReplaceTag renames oldTag to newTag in place. Nothing changes when newTag
// is blank or already present, matching how a duplicate rename is ignored.
func ReplaceTag(tags []string, oldTag, newTag string) ([]string, bool) {
	oldTag = NormalizeName(oldTag)
	newTag = NormalizeName(newTag)
	if newTag == "" {
		return tags, false
	}
	found := false
	for _, t := range tags {
		if t == newTag {
			return tags, false
		}
		if t == oldTag {
			found = true
		}
	}
	if !found {
		return tags, false
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		if t == oldTag {
			t = newTag
		}
		out[i] = t
	}
	return out, true
}

// NormalizeEdge applies the graph's feature flags to a requested edge:
// undirected graphs only hold bidirectional edges, graphs without weights
// use DefaultWeight and graphs without labels keep edges unnamed.
func (g Graph) NormalizeEdge(e Edge) Edge {
	if !g.Directed {
		e.Bidirectional = true
	}
	if !g.HasEdgeWeights {
		e.Weight = DefaultWeight
	}
	if g.HasEdgeLabels {
		e.Name = NormalizeName(e.Name)
	} else {
		e.Name = ""
	}
	return e
}

// ValidateWeight rejects weights that cannot be stored meaningfully.
func ValidateWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return errors.Invalidf("weight must be a finite number")
	}
	return nil
}
