// Package vpath implements the virtual paths handed to every driver.
//
// A [Path] is always absolute, slash separated and free of "." and ".."
// elements, so joining it below a host directory can never escape that
// directory. Paths are values and never change once constructed; every
// operation returns a new [Path].
package vpath

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator is the separator of virtual path elements.
	Separator = "/"

	// MaxLength is the maximum length of a virtual path in bytes.
	MaxLength = 4096
)

var (
	ErrEmptyPath   = errors.New("empty path")
	ErrNotAbsolute = errors.New("path is not absolute")
	ErrNotRelative = errors.New("path element is not relative")
	ErrInvalidPath = errors.New("invalid path element")
	ErrPathTooLong = errors.New("path too long")
)

// Path is an immutable, validated virtual path. The zero value is the root.
type Path struct {
	elems []string
}

// Root returns the root path ("/").
func Root() Path {
	return Path{}
}

// New parses and validates an absolute virtual path. Repeated and trailing
// separators are tolerated and dropped.
func New(s string) (Path, error) {
	if s == "" {
		return Path{}, ErrEmptyPath
	}

	if !strings.HasPrefix(s, Separator) {
		return Path{}, fmt.Errorf("(vpath) %q: %w", s, ErrNotAbsolute)
	}

	elems, err := split(s)
	if err != nil {
		return Path{}, err
	}

	p := Path{elems: elems}
	if len(p.String()) > MaxLength {
		return Path{}, fmt.Errorf("(vpath) %q: %w", s, ErrPathTooLong)
	}

	return p, nil
}

// MustNew is like [New] but panics on an invalid path. It is meant for
// compile-time constant paths.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}

	return p
}

// Append returns the path extended by a relative path, which may itself
// contain several elements ("a/b").
func (p Path) Append(rel string) (Path, error) {
	if rel == "" {
		return Path{}, ErrEmptyPath
	}

	if strings.HasPrefix(rel, Separator) {
		return Path{}, fmt.Errorf("(vpath) %q: %w", rel, ErrNotRelative)
	}

	elems, err := split(rel)
	if err != nil {
		return Path{}, err
	}

	return p.with(elems)
}

// Join returns other placed below p, e.g. "/a".Join("/b/c") is "/a/b/c".
func (p Path) Join(other Path) (Path, error) {
	return p.with(other.elems)
}

func (p Path) with(elems []string) (Path, error) {
	joined := make([]string, 0, len(p.elems)+len(elems))
	joined = append(joined, p.elems...)
	joined = append(joined, elems...)

	result := Path{elems: joined}
	if len(result.String()) > MaxLength {
		return Path{}, fmt.Errorf("(vpath) %q: %w", result.String(), ErrPathTooLong)
	}

	return result, nil
}

// Parent returns the parent of p. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}

	return Path{elems: p.elems[:len(p.elems)-1]}, true
}

// Base returns the last element of p, or "/" for the root.
func (p Path) Base() string {
	if p.IsRoot() {
		return Separator
	}

	return p.elems[len(p.elems)-1]
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.elems) == 0
}

// Elements returns a copy of the path elements.
func (p Path) Elements() []string {
	elems := make([]string, len(p.elems))
	copy(elems, p.elems)

	return elems
}

// Equal reports whether two paths name the same location.
func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

func (p Path) String() string {
	return Separator + strings.Join(p.elems, Separator)
}

func split(s string) ([]string, error) {
	var elems []string

	for _, elem := range strings.Split(s, Separator) {
		switch {
		case elem == "":
			continue
		case elem == "." || elem == "..":
			return nil, fmt.Errorf("(vpath) %q: %w", s, ErrInvalidPath)
		case strings.ContainsRune(elem, 0):
			return nil, fmt.Errorf("(vpath) %q: %w", s, ErrInvalidPath)
		}
		elems = append(elems, elem)
	}

	return elems, nil
}
