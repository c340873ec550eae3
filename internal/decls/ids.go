package decls

// DeclID identifies a declaration inside the Table arena.
type DeclID uint32

const (
	// NoDeclID marks the absence of a declaration reference.
	NoDeclID DeclID = 0
)

// IsValid reports whether the decl ID refers to an allocated declaration.
func (id DeclID) IsValid() bool { return id != NoDeclID }
