package store

import "fmt"

// ObjUndefError is the error returned if accessing a non-existent slot.
type ObjUndefError struct {
	Handle int
	Size   int
}

func (e ObjUndefError) Error() string {
	return fmt.Sprintf("object undefined (handle: %d, arena size: %d)", e.Handle, e.Size)
}
