// Package ratelimit provides rate limiting for team invite sends.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const cleanupInterval = 5 * time.Minute

// Config holds rate limit configuration.
type Config struct {
	Cooldown            time.Duration // Minimum time between invites to one recipient (default: 60s)
	MaxPerRecipientHour int           // Max invites per recipient per hour (default: 5)
	MaxPerIPHour        int           // Max invites per client IP per hour (default: 30)

	// Clock for testing (nil uses real time)
	Clock clockwork.Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Cooldown:            60 * time.Second,
		MaxPerRecipientHour: 5,
		MaxPerIPHour:        30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter implements per-recipient and per-IP limits for invite sends.
type Limiter struct {
	config *Config
	clock  clockwork.Clock
	mu     sync.RWMutex
	// Keyed by hash of recipient or IP
	byRecipient map[string]*entry
	byIP        map[string]*entry

	// Cleanup goroutine management
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config. Zero limits fall
// back to the defaults.
func New(cfg *Config) *Limiter {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	resolved := *cfg
	if resolved.Cooldown < 0 {
		resolved.Cooldown = 0
	}
	if resolved.MaxPerRecipientHour <= 0 {
		resolved.MaxPerRecipientHour = defaults.MaxPerRecipientHour
	}
	if resolved.MaxPerIPHour <= 0 {
		resolved.MaxPerIPHour = defaults.MaxPerIPHour
	}
	clock := resolved.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        &resolved,
		clock:         clock,
		byRecipient:   make(map[string]*entry),
		byIP:          make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Check reports whether an invite to recipient from ip is allowed.
// Does NOT record the attempt - call Record once the invite is accepted for
// sending, or use Allow to do both under one lock.
func (l *Limiter) Check(recipient, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	recipientKey := hashKey("invite:to:", normalizeIdentifier(recipient))
	ipKey := hashKey("invite:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.check(now, recipientKey, ipKey)
}

// Allow checks and, when allowed, records the attempt atomically, so
// concurrent sends to one recipient cannot both pass the cooldown.
func (l *Limiter) Allow(recipient, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	recipientKey := hashKey("invite:to:", normalizeIdentifier(recipient))
	ipKey := hashKey("invite:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	result := l.check(now, recipientKey, ipKey)
	if result.Allowed {
		bump(l.byRecipient, recipientKey, now)
		bump(l.byIP, ipKey, now)
	}
	return result
}

// check must be called with l.mu held.
func (l *Limiter) check(now time.Time, recipientKey, ipKey string) LimitResult {
	if e := l.byRecipient[recipientKey]; e != nil {
		elapsed := now.Sub(e.lastAt)
		if elapsed < l.config.Cooldown {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.Cooldown - elapsed,
				Reason:     "cooldown",
			}
		}

		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerRecipientHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}

	if e := l.byIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerIPHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// Record counts an invite send against recipient and ip.
func (l *Limiter) Record(recipient, ip string) {
	now := l.clock.Now()
	recipientKey := hashKey("invite:to:", normalizeIdentifier(recipient))
	ipKey := hashKey("invite:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	bump(l.byRecipient, recipientKey, now)
	bump(l.byIP, ipKey, now)
}

func bump(entries map[string]*entry, key string, now time.Time) {
	e := entries[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeIdentifier lowercases the identifier to prevent case-based bypass.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := l.clock.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.Chan():
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.byRecipient {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byRecipient, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

func (l *Limiter) size() (recipients, ips int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byRecipient), len(l.byIP)
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost public IP from X-Forwarded-For.
// When trustProxy is false, ignores X-Forwarded-For entirely (prevents spoofing).
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			// All IPs are private, use the last one
			return strings.TrimSpace(parts[len(parts)-1])
		}

		// Check X-Real-IP (set by nginx)
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

// privateNetworks holds parsed CIDR ranges for private/reserved IPs.
var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10", // Link-local
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP handles both IPv4 and IPv4-mapped IPv6 addresses.
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SanitizeIdentifier masks an email address for logging.
func SanitizeIdentifier(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if local, domain, ok := strings.Cut(identifier, "@"); ok {
		if len(local) > 2 {
			return local[:2] + "***@" + domain
		}
		return "***@" + domain
	}
	if len(identifier) >= 4 {
		return "***" + identifier[len(identifier)-4:]
	}
	return "***"
}

// LogRateLimitExceeded logs a rate limit event with a sanitized recipient.
func LogRateLimitExceeded(logger *zerolog.Logger, recipient, ip string, result LimitResult) {
	logger.Warn().
		Str("event", "rate_limit_exceeded").
		Str("recipient", SanitizeIdentifier(recipient)).
		Str("ip", ip).
		Str("reason", result.Reason).
		Dur("retry_after", result.RetryAfter).
		Msg("Invite rate limit exceeded")
}
