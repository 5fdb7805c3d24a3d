// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package transport binds the TCP listening socket for hioload-http. On
// Linux the socket is created through golang.org/x/sys/unix so the accept
// backlog depth from the configuration is passed to listen(2) verbatim;
// other platforms fall back to net.Listen with the OS default backlog.
package transport
