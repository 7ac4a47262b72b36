package gavel

import (
	"time"
)

// A Rule is a compiled rule together with the text it was compiled from.
// Rules held by a Vault are never modified; a new Rule replaces the old one.
type Rule struct {
	// Unique identifier assigned when the rule is stored in a Vault
	ID string `json:"id"`

	// The rule text as supplied by the user
	Text string `json:"rule"`

	// The compiled rule
	Root Node `json:"-"`

	// When the rule was stored
	Compiled time.Time `json:"compiled"`
}

// Canonical returns the canonical text of the compiled rule.
func (r *Rule) Canonical() string {
	if r == nil || r.Root == nil {
		return ""
	}
	return r.Root.String()
}

// Fields returns the names of the fields the rule refers to.
func (r *Rule) Fields() []string {
	if r == nil {
		return nil
	}
	return Fields(r.Root)
}

// String returns the canonical text and the tree of the rule.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.ID + "\n" + r.Canonical() + "\n" + Tree(r.Root)
}
