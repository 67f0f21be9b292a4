// Package scene resolves the cross references between bank records and
// assembles them into a glTF document.
package scene

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

// WarningKind classifies a reference that could not be resolved.
type WarningKind int

const (
	// WarnUnlinkedMesh is a mesh whose key no node references.
	WarnUnlinkedMesh WarningKind = iota
	// WarnMissingNode is an animation channel naming a node the scene lacks.
	WarnMissingNode
	// WarnOrphanChannel is an animated node that precedes every animation.
	WarnOrphanChannel
	// WarnMissingBone is a skin slot no bone claimed.
	WarnMissingBone
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnlinkedMesh:
		return "unlinked mesh"
	case WarnMissingNode:
		return "missing node"
	case WarnOrphanChannel:
		return "orphan channel"
	case WarnMissingBone:
		return "missing bone"
	}
	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is a recoverable unresolved reference. It satisfies error and
// matches arcerr.ErrUnresolvedReference.
type Warning struct {
	Kind    WarningKind
	Name    string
	Message string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s %q: %s", w.Kind, w.Name, w.Message)
}

func (w Warning) Unwrap() error {
	return arcerr.ErrUnresolvedReference
}

type warnings []Warning

func (ws *warnings) add(kind WarningKind, name, msg string) {
	w := Warning{Kind: kind, Name: name, Message: msg}
	slog.Warn("Unresolved reference", "kind", kind.String(), "name", name, "detail", msg)
	*ws = append(*ws, w)
}
