package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType LAN 에 광고되는 캔버스 서버 서비스 타입
const ServiceType = "_sharedcanvas._tcp"

// Service 발견된 캔버스 서버
type Service struct {
	Instance string
	Addr     string // host:port
}

// Advertise 캔버스 서버를 mDNS 로 광고 (종료 시 Shutdown 호출)
func Advertise(instance string, port int) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"", // .local
		"", // OS hostname
		port,
		nil, // IP 자동 감지
		[]string{"path=/ws/canvas"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse timeout 동안 LAN 의 캔버스 서버 검색
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make([]Service, 0)
	done := make(chan struct{})

	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			addr := net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))
			if seen[addr] {
				continue
			}
			seen[addr] = true
			found = append(found, Service{Instance: e.Name, Addr: addr})
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done
	if err != nil {
		return found, fmt.Errorf("mDNS lookup failed: %w", err)
	}
	return found, nil
}

// PortOf ":3000", "0.0.0.0:3000" 형식 주소에서 포트 추출
func PortOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return port, nil
}
