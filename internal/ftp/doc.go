// Package ftp talks to the embedded FTP server of an mt32-pi.
//
// Session wraps a single control connection and retries transfers that fail
// for transient reasons, reconnecting between attempts. A retried transfer
// starts again from the first byte. The protocol itself is provided by
// github.com/jlaffaye/ftp behind the ServerConn interface.
package ftp
