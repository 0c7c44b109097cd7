/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package exec runs commands inside live Pods over the API server's exec
// channel and relays their output.
//
// Opening a channel and using it are split: an Opener turns a Request into a
// remotecommand.Executor, and a Session drives that executor, relays stdout
// and stderr separately (no TTY is allocated) and captures the remote exit
// code. Tests substitute the Opener.
package exec
