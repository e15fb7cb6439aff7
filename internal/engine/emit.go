package engine

import (
	"math"
	"sync"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

// EmitReason tags which transition rule produced an emission decision
type EmitReason string

const (
	EmitNew               EmitReason = "new"
	EmitCooldownExpired   EmitReason = "cooldown_expired"
	EmitReversal          EmitReason = "reversal"
	EmitValueChange       EmitReason = "value_change"
	EmitConfidenceUpgrade EmitReason = "confidence_upgrade"
	EmitStaleRecord       EmitReason = "stale_record"
	SuppressCooldown      EmitReason = "suppressed_cooldown"
)

// EmitDecision is the controller's verdict for one evaluation
type EmitDecision struct {
	Emit   bool
	Reason EmitReason
}

// historyRecord is the per-key dedup state. Overwritten on every emission,
// never deleted. The embedded mutex makes read-modify-write atomic per key.
type historyRecord struct {
	mu              sync.Mutex
	lastAction      string
	lastConfidence  models.Confidence
	lastValue       float64
	lastEmittedAt   time.Time
	lastEvaluatedAt time.Time
	hasEmitted      bool
}

// Controller is the stateful emission gate. One record per signal-type key;
// keys are opaque to the controller (market signals key by type, asset
// signals by asset symbol).
type Controller struct {
	mu      sync.Mutex
	records map[string]*historyRecord

	cooldown          time.Duration
	valueChangeFactor float64
	maxRecordAge      time.Duration // 0 disables the staleness override
}

// NewController creates an emission controller. valueChangeFactor is the
// relative change in the triggering value that forces re-emission inside the
// cooldown window. maxRecordAge of 0 means cooldown alone governs.
func NewController(cooldown time.Duration, valueChangeFactor float64, maxRecordAge time.Duration) *Controller {
	return &Controller{
		records:           make(map[string]*historyRecord),
		cooldown:          cooldown,
		valueChangeFactor: valueChangeFactor,
		maxRecordAge:      maxRecordAge,
	}
}

func (c *Controller) record(key string) *historyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[key]
	if !ok {
		rec = &historyRecord{}
		c.records[key] = rec
	}
	return rec
}

// Decide runs the dedup state machine for one (key, action) evaluation.
// Deterministic for a fixed (key, history, decision) triple. The per-key
// lock is held across the full read-decide-write so concurrent evaluations
// of the same key cannot both emit.
func (c *Controller) Decide(key, action string, confidence models.Confidence, value float64, now time.Time) EmitDecision {
	rec := c.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	decision := c.decideLocked(rec, action, value, confidence, now)
	if decision.Emit {
		rec.lastAction = action
		rec.lastConfidence = confidence
		rec.lastValue = value
		rec.lastEmittedAt = now
		rec.hasEmitted = true
	}
	rec.lastEvaluatedAt = now
	return decision
}

func (c *Controller) decideLocked(rec *historyRecord, action string, value float64, confidence models.Confidence, now time.Time) EmitDecision {
	if !rec.hasEmitted {
		return EmitDecision{Emit: true, Reason: EmitNew}
	}

	elapsed := now.Sub(rec.lastEmittedAt)

	if c.maxRecordAge > 0 && elapsed >= c.maxRecordAge {
		return EmitDecision{Emit: true, Reason: EmitStaleRecord}
	}
	if elapsed >= c.cooldown {
		return EmitDecision{Emit: true, Reason: EmitCooldownExpired}
	}
	if action != rec.lastAction {
		return EmitDecision{Emit: true, Reason: EmitReversal}
	}
	if rec.lastValue != 0 {
		change := math.Abs(value-rec.lastValue) / math.Abs(rec.lastValue)
		if change > c.valueChangeFactor {
			return EmitDecision{Emit: true, Reason: EmitValueChange}
		}
	}
	if rec.lastConfidence == models.ConfidenceMedium && confidence == models.ConfidenceHigh {
		return EmitDecision{Emit: true, Reason: EmitConfidenceUpgrade}
	}

	return EmitDecision{Reason: SuppressCooldown}
}

// LastEmittedAt reports when the key last emitted, if ever
func (c *Controller) LastEmittedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	rec, ok := c.records[key]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.hasEmitted {
		return time.Time{}, false
	}
	return rec.lastEmittedAt, true
}
