package services

import (
	"testing"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func TestExtractIP(t *testing.T) {
	cases := []struct {
		name string
		req  domain.Request
		want string
	}{
		{
			name: "first forwarded address wins",
			req: domain.Request{
				Header:     map[string][]string{"X-Forwarded-For": {" 203.0.113.7 , 10.0.0.1"}, "X-Real-Ip": {"198.51.100.1"}},
				RemoteAddr: "127.0.0.1:4000",
			},
			want: "203.0.113.7",
		},
		{
			name: "real ip when no forwarded header",
			req: domain.Request{
				Header:     map[string][]string{"X-Real-Ip": {"198.51.100.1"}},
				RemoteAddr: "127.0.0.1:4000",
			},
			want: "198.51.100.1",
		},
		{
			name: "empty forwarded entry falls through",
			req: domain.Request{
				Header:     map[string][]string{"X-Forwarded-For": {" , 10.0.0.1"}},
				RemoteAddr: "192.0.2.10:8080",
			},
			want: "192.0.2.10",
		},
		{
			name: "peer host without port",
			req:  domain.Request{RemoteAddr: "192.0.2.44"},
			want: "192.0.2.44",
		},
		{
			name: "ipv6 peer",
			req:  domain.Request{RemoteAddr: "[2001:db8::1]:443"},
			want: "2001:db8::1",
		},
		{
			name: "nothing available",
			req:  domain.Request{},
			want: UnknownIP,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractIP(tc.req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
