/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package transfer copies local files and directories into a running Pod.

kodman has no way to bind-mount a workstation path into a remote Pod, so each
volume is copied instead: the source is packed into an uncompressed tar stream
rooted at the destination path and piped into an extraction command running in
the Pod (by default `tar -xf - -C /`).

# Volume specifications

Volumes use docker's syntax:

	SRC                  copy SRC to the same absolute path in the Pod
	SRC:DST              copy SRC to DST (DST must be absolute)
	SRC:DST:ro|rw        accepted for compatibility; the mode has no effect

When SRC is a file and DST is a directory in the Pod (DST ends with "/" or
already exists as a directory), the file is placed inside DST keeping its
name.
*/
package transfer
