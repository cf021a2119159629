// Package server
// Author: momentics <momentics@gmail.com>
//
// Demo servers built on the socket, selector and channel packages: a blocking
// file upload server, a selector-driven chat server and a datagram receiver.
package server
