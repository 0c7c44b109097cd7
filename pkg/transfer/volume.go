package transfer

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/epics-containers/kodman/pkg/errors"
)

// VolumeMount is a local path to copy into the Pod.
type VolumeMount struct {
	// Source is the absolute local path.
	Source string
	// Destination is the absolute path inside the Pod. A trailing "/" marks
	// it as a directory.
	Destination string
	// ReadOnly records a ":ro" suffix. Copies are always writable.
	ReadOnly bool
}

// String renders m in SRC:DST form.
func (m VolumeMount) String() string {
	return m.Source + ":" + m.Destination
}

// ParseVolume parses a SRC[:DST[:MODE]] specification. The source is made
// absolute against the working directory; the destination defaults to it.
func ParseVolume(spec string) (VolumeMount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) > 3 {
		return VolumeMount{}, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid volume %q: expected SRC[:DST[:MODE]]", spec))
	}

	if parts[0] == "" {
		return VolumeMount{}, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid volume %q: source path is empty", spec))
	}
	src, err := filepath.Abs(parts[0])
	if err != nil {
		return VolumeMount{}, errors.Wrap(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid volume %q", spec), err)
	}

	m := VolumeMount{
		Source:      src,
		Destination: filepath.ToSlash(src),
	}

	if len(parts) > 1 && parts[1] != "" {
		m.Destination = parts[1]
	}
	if !path.IsAbs(m.Destination) {
		return VolumeMount{}, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid volume %q: destination path must be absolute", spec))
	}

	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			m.ReadOnly = true
		case "rw", "":
		default:
			return VolumeMount{}, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid volume %q: unknown mode %q", spec, parts[2]))
		}
	}

	return m, nil
}

// ParseVolumes parses every specification, failing on the first invalid one.
func ParseVolumes(specs []string) ([]VolumeMount, error) {
	mounts := make([]VolumeMount, 0, len(specs))
	for _, s := range specs {
		m, err := ParseVolume(s)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

// EffectiveDestination returns where the archive of m is rooted: the
// destination itself, or for a file copied into a directory, the file's
// basename inside that directory.
func EffectiveDestination(m VolumeMount, sourceIsDir, destinationIsDir bool) string {
	dest := path.Clean(m.Destination)
	if !sourceIsDir && destinationIsDir {
		return path.Join(dest, filepath.Base(m.Source))
	}
	return dest
}
