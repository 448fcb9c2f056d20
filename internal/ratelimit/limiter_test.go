package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func TestCheck_Cooldown(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{
		Cooldown:            60 * time.Second,
		MaxPerRecipientHour: 5,
		MaxPerIPHour:        20,
		Clock:               clock,
	})
	defer limiter.Close()

	recipient := "friend@example.com"
	ip := "192.168.1.1"

	// First request should be allowed
	result := limiter.Check(recipient, ip)
	if !result.Allowed {
		t.Errorf("First request should be allowed, got blocked: %s", result.Reason)
	}
	limiter.Record(recipient, ip)

	// Second request within cooldown should be blocked
	clock.Advance(30 * time.Second)
	result = limiter.Check(recipient, ip)
	if result.Allowed {
		t.Error("Second request within cooldown should be blocked")
	}
	if result.Reason != "cooldown" {
		t.Errorf("Expected reason 'cooldown', got '%s'", result.Reason)
	}
	if result.RetryAfter != 30*time.Second {
		t.Errorf("Expected RetryAfter 30s, got %v", result.RetryAfter)
	}

	// After cooldown expires, should be allowed
	clock.Advance(31 * time.Second)
	result = limiter.Check(recipient, ip)
	if !result.Allowed {
		t.Errorf("Request after cooldown should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheck_HourlyLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{
		Cooldown:            time.Second,
		MaxPerRecipientHour: 3,
		MaxPerIPHour:        20,
		Clock:               clock,
	})
	defer limiter.Close()

	recipient := "friend@example.com"
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		result := limiter.Check(recipient, ip)
		if !result.Allowed {
			t.Fatalf("Request %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.Record(recipient, ip)
		clock.Advance(2 * time.Second)
	}

	result := limiter.Check(recipient, ip)
	if result.Allowed {
		t.Fatal("Fourth request within the hour should be blocked")
	}
	if result.Reason != "hourly_limit" {
		t.Errorf("Expected reason 'hourly_limit', got '%s'", result.Reason)
	}
	if result.RetryAfter != time.Hour-6*time.Second {
		t.Errorf("Expected RetryAfter %v, got %v", time.Hour-6*time.Second, result.RetryAfter)
	}

	// Window rolls over after an hour from the first send
	clock.Advance(time.Hour)
	if result := limiter.Check(recipient, ip); !result.Allowed {
		t.Errorf("Request after window should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheck_IPLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{
		Cooldown:            time.Second,
		MaxPerRecipientHour: 10,
		MaxPerIPHour:        2,
		Clock:               clock,
	})
	defer limiter.Close()

	ip := "203.0.113.9"
	limiter.Record("one@example.com", ip)
	limiter.Record("two@example.com", ip)

	result := limiter.Check("three@example.com", ip)
	if result.Allowed {
		t.Fatal("Third recipient from the same IP should be blocked")
	}
	if result.Reason != "ip_hourly_limit" {
		t.Errorf("Expected reason 'ip_hourly_limit', got '%s'", result.Reason)
	}

	// A different IP is unaffected
	if result := limiter.Check("three@example.com", "203.0.113.10"); !result.Allowed {
		t.Errorf("Different IP should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheck_RecipientNormalization(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{Cooldown: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.Record("Friend@Example.com", "10.0.0.1")

	if result := limiter.Check("  friend@example.COM ", "10.0.0.2"); result.Allowed {
		t.Error("Case and whitespace variants should share a cooldown")
	}
}

func TestCheckAndRecord_SeparateOps(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{
		Cooldown:            60 * time.Second,
		MaxPerRecipientHour: 1,
		MaxPerIPHour:        100,
		Clock:               clock,
	})
	defer limiter.Close()

	recipient := "friend@example.com"
	ip := "192.168.1.1"

	for i := 0; i < 10; i++ {
		if result := limiter.Check(recipient, ip); !result.Allowed {
			t.Errorf("Check %d should be allowed without prior Record", i+1)
		}
	}

	limiter.Record(recipient, ip)

	if result := limiter.Check(recipient, ip); result.Allowed {
		t.Error("Check after Record should be blocked")
	}
}

func TestAllow_RecordsWhenAllowed(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{Cooldown: time.Minute, Clock: clock})
	defer limiter.Close()

	if result := limiter.Allow("friend@example.com", "10.0.0.1"); !result.Allowed {
		t.Fatalf("First Allow should pass, got blocked: %s", result.Reason)
	}
	result := limiter.Allow("friend@example.com", "10.0.0.1")
	if result.Allowed || result.Reason != "cooldown" {
		t.Fatalf("Second Allow should hit the cooldown, got %+v", result)
	}

	// A blocked attempt is not counted.
	recipients, ips := limiter.size()
	if recipients != 1 || ips != 1 {
		t.Fatalf("Expected one entry per key, got %d and %d", recipients, ips)
	}
	clock.Advance(time.Minute)
	if result := limiter.Allow("friend@example.com", "10.0.0.1"); !result.Allowed {
		t.Errorf("Allow after cooldown should pass, got blocked: %s", result.Reason)
	}
}

func TestAllow_ConcurrentSameRecipient(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{Cooldown: time.Minute, Clock: clock})
	defer limiter.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("friend@example.com", "10.0.0.1").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 1 {
		t.Errorf("Expected exactly one concurrent Allow to pass, got %d", allowed)
	}
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	clock := newFakeClock()
	limiter := New(&Config{Clock: clock})
	defer limiter.Close()

	limiter.Record("old@example.com", "10.0.0.1")
	clock.Advance(90 * time.Minute)
	limiter.Record("new@example.com", "10.0.0.2")

	limiter.cleanup()

	recipients, ips := limiter.size()
	if recipients != 1 || ips != 1 {
		t.Errorf("Expected 1 recipient and 1 ip entry after cleanup, got %d and %d", recipients, ips)
	}
}

func TestNew_Defaults(t *testing.T) {
	limiter := New(nil)
	defer limiter.Close()

	if limiter.config.Cooldown != 60*time.Second {
		t.Errorf("Expected default cooldown 60s, got %v", limiter.config.Cooldown)
	}
	if limiter.config.MaxPerRecipientHour != 5 || limiter.config.MaxPerIPHour != 30 {
		t.Errorf("Unexpected default limits %+v", limiter.config)
	}

	partial := New(&Config{Cooldown: time.Second})
	defer partial.Close()
	if partial.config.MaxPerRecipientHour != 5 {
		t.Errorf("Expected zero limit to fall back to default, got %d", partial.config.MaxPerRecipientHour)
	}
}

func TestLimiter_Close(t *testing.T) {
	limiter := New(nil)
	limiter.Check("friend@example.com", "10.0.0.1")

	done := make(chan struct{})
	go func() {
		limiter.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not stop the cleanup goroutine")
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := New(&Config{Cooldown: time.Millisecond, MaxPerRecipientHour: 1000, MaxPerIPHour: 1000})
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recipient := "friend@example.com"
			if i%2 == 0 {
				recipient = "other@example.com"
			}
			limiter.Check(recipient, "10.0.0.1")
			limiter.Record(recipient, "10.0.0.1")
		}(i)
	}
	wg.Wait()
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "TrustProxy=true, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50", // Rightmost non-private
		},
		{
			name:       "TrustProxy=true, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1", // Last one when all private
		},
		{
			name:       "TrustProxy=true, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "TrustProxy=false, ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100", // Uses RemoteAddr, ignores spoofed XFF
		},
		{
			name:       "TrustProxy=false, ignores X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "No headers, RemoteAddr only",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got := GetClientIP(r, tt.trustProxy)
			if got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetClientIP_SpoofingPrevention(t *testing.T) {
	// Attacker sends fake X-Forwarded-For header
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4") // Attacker-supplied
	r.RemoteAddr = "192.168.1.100:54321"       // Real connection

	// With TrustProxy=false, the fake header is ignored
	got := GetClientIP(r, false)
	if got != "192.168.1.100" {
		t.Errorf("Should ignore X-Forwarded-For when TrustProxy=false, got %q", got)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"JOHN.DOE@EXAMPLE.COM", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"5551234567", "***4567"},
		{"123", "***"},
		{"", "***"},
		{"  User@Example.Com  ", "us***@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeIdentifier(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		// IPv4 private ranges
		{"10.0.0.1", true},
		{"10.255.255.255", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"192.168.255.255", true},
		{"127.0.0.1", true},
		// IPv6 private/reserved
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true}, // Link-local
		// IPv4-mapped IPv6 addresses (must match their IPv4 equivalents)
		{"::ffff:10.0.0.1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:172.16.0.1", true},
		{"::ffff:127.0.0.1", true},
		{"::ffff:8.8.8.8", false},   // Public IP in IPv4-mapped format
		{"::ffff:1.1.1.1", false},   // Public IP in IPv4-mapped format
		// Public IPs
		{"203.0.113.50", false},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"2001:4860:4860::8888", false}, // Google DNS IPv6
		// Invalid
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got := isPrivateIP(tt.ip)
			if got != tt.expected {
				t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}
