package model

import "errors"

// ErrConflict marks a write the remote refused because the record is not in
// a state the write applies to, such as toggling a suspended user. Both the
// database repositories and the HTTP client return errors matching it.
var ErrConflict = errors.New("conflict")
