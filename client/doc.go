// Package client
// Author: momentics <momentics@gmail.com>
//
// Counterparts of the demo servers: file upload, chat and datagram senders.
package client
