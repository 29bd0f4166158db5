package stunutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

const (
	NATTypeUnknown          = "unknown"
	NATTypeSymmetric        = "symmetric"
	NATTypeConeOrRestricted = "cone_or_restricted"
)

// Egress is this host's public address as seen from the internet, which is
// the address of whichever WAN uplink the host's traffic leaves through.
type Egress struct {
	Addr    string
	IP      string
	NATType string
	Servers int
}

// Probe queries STUN servers for the public mapped address.
func Probe(ctx context.Context, servers []string, timeout time.Duration) (Egress, error) {
	if len(servers) == 0 {
		return Egress{NATType: NATTypeUnknown}, fmt.Errorf("no STUN servers provided")
	}

	mapped := make([]string, 0, len(servers))
	var lastErr error
	for _, server := range servers {
		addr, err := mappedAddr(ctx, server, timeout)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			continue
		}
		mapped = append(mapped, addr)
	}

	if len(mapped) == 0 {
		return Egress{NATType: NATTypeUnknown}, lastErr
	}

	e := Egress{Addr: mapped[0], NATType: Classify(mapped), Servers: len(mapped)}
	if host, _, err := net.SplitHostPort(e.Addr); err == nil {
		e.IP = host
	}
	return e, nil
}

// Classify infers NAT type by comparing mapped addresses from multiple servers.
func Classify(addrs []string) string {
	if len(addrs) < 2 {
		return NATTypeUnknown
	}
	for _, addr := range addrs[1:] {
		if addr != addrs[0] {
			return NATTypeSymmetric
		}
	}
	return NATTypeConeOrRestricted
}

func mappedAddr(ctx context.Context, server string, timeout time.Duration) (string, error) {
	uriStr := strings.TrimSpace(server)
	if uriStr == "" {
		return "", fmt.Errorf("empty STUN server")
	}
	if !strings.HasPrefix(uriStr, "stun:") {
		uriStr = "stun:" + uriStr
	}

	uri, err := stun.ParseURI(uriStr)
	if err != nil {
		return "", err
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		addr string
		err  error
	}
	done := make(chan result, 1)
	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	go func() {
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				done <- result{err: res.Error}
				return
			}
			var xor stun.XORMappedAddress
			if err := xor.GetFrom(res.Message); err != nil {
				done <- result{err: err}
				return
			}
			done <- result{addr: xor.String()}
		})
		if err != nil {
			select {
			case done <- result{err: err}:
			default:
			}
		}
	}()

	select {
	case r := <-done:
		return r.addr, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
