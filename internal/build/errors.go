package build

import "errors"

// ErrNoBuild is returned when no successful build exists yet.
var ErrNoBuild = errors.New("no successful build yet")
