package internal

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// RebootPort is the UDP MIDI port of an mt32-pi.
const RebootPort = 1999

// rebootSysEx is the non-commercial SysEx message mt32-pi treats as a reboot
// request.
var rebootSysEx = []byte{0xF0, 0x7D, 0x00, 0xF7}

// Reboot asks the mt32-pi at host to restart. The request only arrives when
// UDP MIDI is enabled on the device, and there is no acknowledgement.
func Reboot(host string) error {
	return SendReboot(net.JoinHostPort(host, strconv.Itoa(RebootPort)))
}

// SendReboot sends the reboot request to addr.
func SendReboot(addr string) error {
	conn, err := net.DialTimeout("udp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(rebootSysEx); err != nil {
		return fmt.Errorf("failed to send reboot request to %s: %w", addr, err)
	}

	return nil
}
