// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports unhealthy when Ping fails, or degraded for optional
// dependencies.
type PingChecker struct {
	name    string
	pinger  Pinger
	timeout time.Duration
	failure Status
}

// NewPingChecker creates a checker that pings with a 2s timeout.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p, timeout: 2 * time.Second, failure: StatusUnhealthy}
}

// Optional makes a failed ping degrade health instead of failing readiness.
func (c *PingChecker) Optional() *PingChecker {
	c.failure = StatusDegraded
	return c
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: c.failure, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// TickInfo describes the last reconciliation pass.
type TickInfo struct {
	At      time.Time
	Skipped bool
}

// TickChecker reports on reconciliation freshness. A loop that has not
// ticked within maxAge is unhealthy; a loop whose last tick was skipped
// because the store failed is degraded.
type TickChecker struct {
	last   func() TickInfo
	maxAge func() time.Duration
	now    func() time.Time
}

// NewTickChecker creates a tick freshness checker. maxAge is re-read on
// every check so it follows interval changes.
func NewTickChecker(last func() TickInfo, maxAge func() time.Duration) *TickChecker {
	return &TickChecker{last: last, maxAge: maxAge, now: time.Now}
}

func (c *TickChecker) Name() string { return "enforcer" }

func (c *TickChecker) Check(context.Context) CheckResult {
	info := c.last()
	if info.At.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no tick yet"}
	}
	age := c.now().Sub(info.At)
	if limit := c.maxAge(); age > limit {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last tick %s ago (limit %s)", age.Truncate(time.Second), limit),
		}
	}
	if info.Skipped {
		return CheckResult{Status: StatusDegraded, Message: "last tick skipped: store unavailable"}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("last tick %s ago", age.Truncate(time.Millisecond))}
}
