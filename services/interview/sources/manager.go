// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sources implements the source hierarchy resolution engine: the
// component that decides, per query, which backing sources to consult, in
// what order, under what freshness policy and bounds, and that folds the
// result into a single attributed response.
//
// # Description
//
// The source precedence is projection_cache > ledger_mirror >
// component_poll > storage_metadata (parallel tier) > global_ledger. The
// SourceManager owns one instance of each source and implements the
// per-operation fallback policy; everything outside this package is
// serialization and protocol wiring.
//
// # Thread Safety
//
// All SourceManager operations are safe for concurrent use. Shared state
// (projection cache maps, poller cache, rate-limiter windows) is
// mutex-guarded; no lock spans a network call.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/interview/observability"
)

var tracer = otel.Tracer("interview.sources")

// Public operation names, used for audit events, metrics labels, and the
// MCP tool catalog.
const (
	OpStatusReceipts     = "status.receipts.interview"
	OpSearchReceipts     = "search.receipts.interview"
	OpGetReceipt         = "get.receipt.interview"
	OpHealthAsync        = "health.async.interview"
	OpQueueAsync         = "queue.async.interview"
	OpInventoryArtifacts = "inventory.artifacts.depot.interview"
	OpGlobalLedger       = "global.ledger.receipts"
)

// Cost unit weights per source. Attribution and cost reflect the source
// that ultimately answered, never the sources merely tried.
const (
	costCacheHit     = 1
	costMirrorGet    = 2
	costPoll         = 5
	costGlobalLedger = 100
)

// asyncGateComponentID is the wire component id reported when the
// component does not name itself.
const asyncGateComponentID = "asyncgate"

// AsyncGateComponent labels the AsyncGate poll budget in rate-limit errors
// and metrics.
const AsyncGateComponent = "AsyncGate"

// volumeCost is the mirror/storage query weight: one unit base plus one
// per ten records returned.
func volumeCost(count int) int {
	if c := count / 10; c > 1 {
		return c
	}
	return 1
}

// =============================================================================
// Downstream contracts
// =============================================================================

// ReceiptLedger is the read surface of a receipt store: bounded header
// search plus get-by-id. The ledger mirror and the global ledger both
// satisfy it. Implementations signal *source unavailable* for transport,
// timeout, decode, or configuration failures and (nil, nil) for an absent
// receipt.
type ReceiptLedger interface {
	QueryHeaders(ctx context.Context, q datatypes.ReceiptQuery) ([]datatypes.ReceiptHeader, error)
	GetReceipt(ctx context.Context, tenantID, receiptID string) (*datatypes.FullReceipt, error)
}

// ArtifactIndex lists staged artifact pointers for a lineage or a
// deliverable. Pointers only; implementations never read blob bodies.
type ArtifactIndex interface {
	ListArtifacts(ctx context.Context, q datatypes.ArtifactQuery) (*datatypes.ArtifactInventory, error)
}

// LedgerGate is the explicit, opt-in query surface of the global ledger.
type LedgerGate interface {
	QueryReceipts(ctx context.Context, tenantID, rootTaskID string) ([]datatypes.ReceiptHeader, error)
}

// =============================================================================
// Source Manager
// =============================================================================

// Config carries the resolution policy bounds.
type Config struct {
	DefaultLimit           int
	MaxLimit               int
	DefaultTimeWindowHours int
	MaxTimeWindowHours     int
	AllowGlobalLedger      bool
}

// Deps bundles the sources and sinks a SourceManager orchestrates.
type Deps struct {
	Cache    *ProjectionCache
	Mirror   ReceiptLedger
	Poller   *ComponentPoller
	Storage  ArtifactIndex
	Global   LedgerGate
	Observer extensions.ResolutionObserver
	Logger   *logging.Logger
	Clock    Clock
}

// SourceManager owns all backing sources and implements the per-operation
// fallback policy. Construct one instance at process start and inject it
// into every request-handling path; per-test instances are equally cheap.
type SourceManager struct {
	cfg      Config
	cache    *ProjectionCache
	mirror   ReceiptLedger
	poller   *ComponentPoller
	storage  ArtifactIndex
	global   LedgerGate
	observer extensions.ResolutionObserver
	logger   *logging.Logger
	clock    Clock
}

// NewSourceManager creates a manager over the given sources. Nil Observer,
// Logger, and Clock fields fall back to no-op, default, and system
// implementations.
func NewSourceManager(cfg Config, deps Deps) *SourceManager {
	if deps.Observer == nil {
		deps.Observer = &extensions.NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	return &SourceManager{
		cfg:      cfg,
		cache:    deps.Cache,
		mirror:   deps.Mirror,
		poller:   deps.Poller,
		storage:  deps.Storage,
		global:   deps.Global,
		observer: deps.Observer,
		logger:   deps.Logger,
		clock:    deps.Clock,
	}
}

// emit reports one completed resolution to the observer sink, metrics, and
// the active span. Observer failures are logged, never surfaced.
func (m *SourceManager) emit(ctx context.Context, started time.Time, ev extensions.AuditEvent) {
	ev.EventID = uuid.NewString()
	ev.ObservedAt = m.clock.Now().UTC()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("interview.source", ev.Source),
		attribute.String("interview.outcome", ev.Outcome),
		attribute.Int("interview.cost_units", ev.CostUnits),
	)

	if err := m.observer.Observe(ctx, ev); err != nil {
		m.logger.Warn("resolution observer failed",
			"operation", ev.Operation,
			"error", err.Error(),
		)
	}
	if mx := observability.DefaultMetrics; mx != nil {
		mx.RecordResolution(ev.Operation, ev.Source, ev.Outcome, m.clock.Now().Sub(started).Seconds(), ev.CostUnits)
	}
}

// cacheEvent records a projection cache lookup outcome.
func cacheEvent(kind string, hit bool) {
	if mx := observability.DefaultMetrics; mx != nil {
		mx.RecordCacheEvent(kind, hit)
	}
}

// meta builds response metadata for one answered source.
func meta(source datatypes.Source, ageMS int64, truncated bool, cost int) datatypes.ResponseMetadata {
	return datatypes.ResponseMetadata{
		Source:         source,
		FreshnessAgeMS: ageMS,
		Truncated:      truncated,
		CostUnits:      cost,
	}
}

// auditFor derives the audit view of a response's metadata.
func auditFor(op, tenantID, outcome string, md datatypes.ResponseMetadata, resultCount int) extensions.AuditEvent {
	return extensions.AuditEvent{
		TenantID:       tenantID,
		Operation:      op,
		Source:         string(md.Source),
		Outcome:        outcome,
		CostUnits:      md.CostUnits,
		FreshnessAgeMS: md.FreshnessAgeMS,
		Truncated:      md.Truncated,
		ResultCount:    resultCount,
	}
}

// auditErr is the audit view of an operation that propagated an error.
func auditErr(op, tenantID, outcome string) extensions.AuditEvent {
	return extensions.AuditEvent{
		TenantID:  tenantID,
		Operation: op,
		Outcome:   outcome,
	}
}

// errOutcome classifies a propagated error for audit and metrics.
func errOutcome(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return extensions.OutcomeRateLimited
	case errors.Is(err, ErrGlobalLedgerDisabled):
		return extensions.OutcomeDenied
	default:
		return extensions.OutcomeError
	}
}

// =============================================================================
// status.receipts.interview
// =============================================================================

// GetStatus resolves the derived status of a task lineage.
//
// Cache hit: returned as-is with the entry's true age. Cache miss: the
// ledger mirror is queried over the default bounded window, the status is
// derived (including the shipment check), written back to the cache along
// with the fetched headers, and returned with mirror attribution. If the
// mirror cannot answer, the operation degrades to state=unknown with cache
// attribution rather than erroring. Freshness has no effect on this
// operation, and it never touches the global ledger.
func (m *SourceManager) GetStatus(ctx context.Context, req datatypes.StatusReceiptsRequest) (*datatypes.StatusReceiptsResponse, error) {
	ctx, span := tracer.Start(ctx, "GetStatus")
	defer span.End()
	started := m.clock.Now()

	lineage, ok := req.Lineage()
	if !ok {
		m.emit(ctx, started, auditErr(OpStatusReceipts, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError("Either task_id or root_task_id is required")
	}
	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpStatusReceipts, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(
		attribute.String("interview.tenant_id", req.TenantID),
		attribute.String("interview.root_task_id", lineage),
	)

	if status, age, hit := m.cache.GetStatus(req.TenantID, lineage); hit {
		cacheEvent("status", true)
		md := meta(datatypes.SourceProjectionCache, age, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpStatusReceipts, req.TenantID, extensions.OutcomeOK, md, 1))
		return &datatypes.StatusReceiptsResponse{Status: *status, Metadata: md}, nil
	}
	cacheEvent("status", false)

	now := m.clock.Now()
	since := ResolveSince(nil, 0, m.cfg.DefaultTimeWindowHours, m.cfg.MaxTimeWindowHours, now)
	limit := ClampLimit(0, m.cfg.DefaultLimit, m.cfg.MaxLimit)

	headers, err := m.mirror.QueryHeaders(ctx, datatypes.ReceiptQuery{
		TenantID:   req.TenantID,
		RootTaskID: lineage,
		Since:      &since,
		Limit:      limit,
	})
	if err != nil {
		m.logger.Warn("status derivation degraded, mirror unavailable",
			"tenant_id", req.TenantID,
			"root_task_id", lineage,
			"error", err.Error(),
		)
		unknown := datatypes.StatusSummary{
			TenantID:         req.TenantID,
			RootTaskID:       lineage,
			State:            datatypes.TaskStateUnknown,
			ArtifactPointers: []string{},
		}
		md := meta(datatypes.SourceProjectionCache, 0, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpStatusReceipts, req.TenantID, extensions.OutcomeDegraded, md, 1))
		return &datatypes.StatusReceiptsResponse{Status: unknown, Metadata: md}, nil
	}

	summary := DeriveStatus(ctx, req.TenantID, lineage, headers, m.mirror.GetReceipt)
	m.cache.CacheStatus(summary)
	m.cache.CacheHeaders(req.TenantID, lineage, headers)

	md := meta(datatypes.SourceLedgerMirror, 0, false, volumeCost(len(headers)))
	m.emit(ctx, started, auditFor(OpStatusReceipts, req.TenantID, extensions.OutcomeOK, md, 1))
	return &datatypes.StatusReceiptsResponse{Status: summary, Metadata: md}, nil
}

// =============================================================================
// search.receipts.interview
// =============================================================================

// SearchReceipts lists receipt headers for a lineage, newest first, under
// the caller's freshness policy.
//
// cache_ok: cache first; an empty cache result falls through to the
// mirror (a mirror failure then returns the empty result, degraded, not an
// error). prefer_fresh: mirror first, cache on mirror failure.
// force_fresh: mirror only, unavailability propagates. Search never writes
// to the cache.
func (m *SourceManager) SearchReceipts(ctx context.Context, req datatypes.SearchReceiptsRequest) (*datatypes.SearchReceiptsResponse, error) {
	ctx, span := tracer.Start(ctx, "SearchReceipts")
	defer span.End()
	started := m.clock.Now()

	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpSearchReceipts, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(
		attribute.String("interview.tenant_id", req.TenantID),
		attribute.String("interview.root_task_id", req.RootTaskID),
		attribute.String("interview.freshness", string(req.Controls.Freshness)),
	)

	now := m.clock.Now()
	limit := ClampLimit(req.Controls.Limit, m.cfg.DefaultLimit, m.cfg.MaxLimit)
	since := ResolveSince(req.Controls.Since, req.Controls.TimeWindowHours,
		m.cfg.DefaultTimeWindowHours, m.cfg.MaxTimeWindowHours, now)
	query := datatypes.ReceiptQuery{
		TenantID:    req.TenantID,
		RootTaskID:  req.RootTaskID,
		Phase:       req.Phase,
		RecipientAI: req.RecipientAI,
		Since:       &since,
		Limit:       limit,
	}

	respond := func(headers []datatypes.ReceiptHeader, md datatypes.ResponseMetadata, outcome string) *datatypes.SearchReceiptsResponse {
		if headers == nil {
			headers = []datatypes.ReceiptHeader{}
		}
		m.emit(ctx, started, auditFor(OpSearchReceipts, req.TenantID, outcome, md, len(headers)))
		return &datatypes.SearchReceiptsResponse{Receipts: headers, Metadata: md}
	}

	switch req.Controls.Freshness {
	case datatypes.FreshnessPreferFresh:
		headers, err := m.mirror.QueryHeaders(ctx, query)
		if err == nil {
			md := meta(datatypes.SourceLedgerMirror, 0, len(headers) >= limit, volumeCost(len(headers)))
			return respond(headers, md, extensions.OutcomeOK), nil
		}
		m.logger.Warn("search falling back to projection cache",
			"tenant_id", req.TenantID,
			"root_task_id", req.RootTaskID,
			"error", err.Error(),
		)
		cached, age := m.cache.SearchHeaders(req.TenantID, req.RootTaskID, req.Phase, req.RecipientAI, since, limit)
		cacheEvent("headers", len(cached) > 0)
		md := meta(datatypes.SourceProjectionCache, age, len(cached) >= limit, costCacheHit)
		return respond(cached, md, extensions.OutcomeDegraded), nil

	case datatypes.FreshnessForceFresh:
		headers, err := m.mirror.QueryHeaders(ctx, query)
		if err != nil {
			m.emit(ctx, started, auditErr(OpSearchReceipts, req.TenantID, errOutcome(err)))
			return nil, err
		}
		md := meta(datatypes.SourceLedgerMirror, 0, len(headers) >= limit, volumeCost(len(headers)))
		return respond(headers, md, extensions.OutcomeOK), nil

	default: // cache_ok
		cached, age := m.cache.SearchHeaders(req.TenantID, req.RootTaskID, req.Phase, req.RecipientAI, since, limit)
		cacheEvent("headers", len(cached) > 0)
		if len(cached) > 0 {
			md := meta(datatypes.SourceProjectionCache, age, len(cached) >= limit, costCacheHit)
			return respond(cached, md, extensions.OutcomeOK), nil
		}
		headers, err := m.mirror.QueryHeaders(ctx, query)
		if err != nil {
			md := meta(datatypes.SourceProjectionCache, 0, false, costCacheHit)
			return respond(nil, md, extensions.OutcomeDegraded), nil
		}
		md := meta(datatypes.SourceLedgerMirror, 0, len(headers) >= limit, volumeCost(len(headers)))
		return respond(headers, md, extensions.OutcomeOK), nil
	}
}

// =============================================================================
// get.receipt.interview
// =============================================================================

// GetReceipt fetches one receipt by id: cache first, then the mirror. A
// mirror hit is written back to the cache. Absence from every consulted
// source is a negative result (found=false), not an error; so is a mirror
// failure after a cache miss.
func (m *SourceManager) GetReceipt(ctx context.Context, req datatypes.GetReceiptRequest) (*datatypes.GetReceiptResponse, error) {
	ctx, span := tracer.Start(ctx, "GetReceipt")
	defer span.End()
	started := m.clock.Now()

	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpGetReceipt, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(
		attribute.String("interview.tenant_id", req.TenantID),
		attribute.String("interview.receipt_id", req.ReceiptID),
	)

	if receipt, age, hit := m.cache.GetReceipt(req.TenantID, req.ReceiptID); hit {
		cacheEvent("receipt", true)
		md := meta(datatypes.SourceProjectionCache, age, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpGetReceipt, req.TenantID, extensions.OutcomeOK, md, 1))
		return &datatypes.GetReceiptResponse{Receipt: receipt, Found: true, Metadata: md}, nil
	}
	cacheEvent("receipt", false)

	receipt, err := m.mirror.GetReceipt(ctx, req.TenantID, req.ReceiptID)
	if err != nil {
		m.logger.Warn("receipt lookup degraded, mirror unavailable",
			"tenant_id", req.TenantID,
			"receipt_id", req.ReceiptID,
			"error", err.Error(),
		)
		md := meta(datatypes.SourceProjectionCache, 0, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpGetReceipt, req.TenantID, extensions.OutcomeDegraded, md, 0))
		return &datatypes.GetReceiptResponse{Found: false, Metadata: md}, nil
	}
	if receipt == nil {
		md := meta(datatypes.SourceProjectionCache, 0, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpGetReceipt, req.TenantID, extensions.OutcomeOK, md, 0))
		return &datatypes.GetReceiptResponse{Found: false, Metadata: md}, nil
	}

	m.cache.CacheReceipt(*receipt)
	md := meta(datatypes.SourceLedgerMirror, 0, false, costMirrorGet)
	m.emit(ctx, started, auditFor(OpGetReceipt, req.TenantID, extensions.OutcomeOK, md, 1))
	return &datatypes.GetReceiptResponse{Receipt: receipt, Found: true, Metadata: md}, nil
}

// =============================================================================
// health.async.interview
// =============================================================================

// PollHealth reports a live (or briefly cached) AsyncGate health snapshot.
// Unreachability degrades to reachable=false; a rate-limit rejection
// propagates and is never substituted with stale data.
func (m *SourceManager) PollHealth(ctx context.Context, req datatypes.HealthAsyncRequest) (*datatypes.HealthAsyncResponse, error) {
	ctx, span := tracer.Start(ctx, "PollHealth")
	defer span.End()
	started := m.clock.Now()

	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpHealthAsync, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(attribute.String("interview.tenant_id", req.TenantID))

	snap, age, err := m.poller.PollHealth(ctx, req.TenantID, req.Verbose)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			if mx := observability.DefaultMetrics; mx != nil {
				mx.RecordRateLimitRejection(AsyncGateComponent)
			}
			m.emit(ctx, started, auditErr(OpHealthAsync, req.TenantID, extensions.OutcomeRateLimited))
			return nil, err
		}
		m.logger.Warn("health poll degraded, component unreachable",
			"tenant_id", req.TenantID,
			"error", err.Error(),
		)
		md := meta(datatypes.SourceComponentPoll, 0, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpHealthAsync, req.TenantID, extensions.OutcomeDegraded, md, 0))
		return &datatypes.HealthAsyncResponse{
			ComponentID: asyncGateComponentID,
			Reachable:   false,
			Metadata:    md,
		}, nil
	}

	componentID := snap.ComponentID
	if componentID == "" {
		componentID = asyncGateComponentID
	}
	var metrics *datatypes.MetricsSnapshot
	if req.Verbose {
		metrics = snap.Metrics
	}

	md := meta(datatypes.SourceComponentPoll, age, false, costPoll)
	m.emit(ctx, started, auditFor(OpHealthAsync, req.TenantID, extensions.OutcomeOK, md, 1))
	return &datatypes.HealthAsyncResponse{
		ComponentID:       componentID,
		Reachable:         true,
		Version:           snap.Version,
		UptimeSeconds:     snap.UptimeSeconds,
		ErrorBudgetStatus: snap.ErrorBudgetStatus,
		MetricsSnapshot:   metrics,
		Metadata:          md,
	}, nil
}

// =============================================================================
// queue.async.interview
// =============================================================================

// PollQueue reports live (or briefly cached) AsyncGate queue diagnostics
// with bounded item headers. Unreachability degrades to an empty snapshot;
// rate-limit rejections propagate.
func (m *SourceManager) PollQueue(ctx context.Context, req datatypes.QueueAsyncRequest) (*datatypes.QueueAsyncResponse, error) {
	ctx, span := tracer.Start(ctx, "PollQueue")
	defer span.End()
	started := m.clock.Now()

	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpQueueAsync, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(attribute.String("interview.tenant_id", req.TenantID))

	limit := ClampQueueLimit(req.Limit)
	snap, age, err := m.poller.PollQueue(ctx, datatypes.QueueQuery{
		TenantID:        req.TenantID,
		QueueID:         req.QueueID,
		Limit:           limit,
		IncludeExamples: req.IncludeExamples,
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			if mx := observability.DefaultMetrics; mx != nil {
				mx.RecordRateLimitRejection(AsyncGateComponent)
			}
			m.emit(ctx, started, auditErr(OpQueueAsync, req.TenantID, extensions.OutcomeRateLimited))
			return nil, err
		}
		m.logger.Warn("queue poll degraded, component unreachable",
			"tenant_id", req.TenantID,
			"error", err.Error(),
		)
		md := meta(datatypes.SourceComponentPoll, 0, false, costCacheHit)
		m.emit(ctx, started, auditFor(OpQueueAsync, req.TenantID, extensions.OutcomeDegraded, md, 0))
		return &datatypes.QueueAsyncResponse{
			Items:    []datatypes.QueueItemHeader{},
			Metadata: md,
		}, nil
	}

	items := []datatypes.QueueItemHeader{}
	if req.IncludeExamples && len(snap.Items) > 0 {
		items = snap.Items
		if len(items) > limit {
			items = items[:limit]
		}
	}

	md := meta(datatypes.SourceComponentPoll, age, len(items) >= limit, costPoll)
	m.emit(ctx, started, auditFor(OpQueueAsync, req.TenantID, extensions.OutcomeOK, md, len(items)))
	return &datatypes.QueueAsyncResponse{
		QueueDepth:        snap.QueueDepth,
		OldestItemAgeMS:   snap.OldestItemAgeMS,
		ActiveLeasesCount: snap.ActiveLeasesCount,
		Items:             items,
		Metadata:          md,
	}, nil
}

// =============================================================================
// inventory.artifacts.depot.interview
// =============================================================================

// ListArtifacts lists artifact pointer metadata for a lineage or a
// deliverable. There is no fallback: storage metadata unavailability
// propagates as an error.
func (m *SourceManager) ListArtifacts(ctx context.Context, req datatypes.InventoryArtifactsRequest) (*datatypes.InventoryArtifactsResponse, error) {
	ctx, span := tracer.Start(ctx, "ListArtifacts")
	defer span.End()
	started := m.clock.Now()

	if req.RootTaskID == "" && req.DeliverableID == "" {
		m.emit(ctx, started, auditErr(OpInventoryArtifacts, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError("Either root_task_id or deliverable_id is required")
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpInventoryArtifacts, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(attribute.String("interview.tenant_id", req.TenantID))

	limit := ClampLimit(req.Controls.Limit, m.cfg.DefaultLimit, m.cfg.MaxLimit)
	inv, err := m.storage.ListArtifacts(ctx, datatypes.ArtifactQuery{
		TenantID:      req.TenantID,
		RootTaskID:    req.RootTaskID,
		DeliverableID: req.DeliverableID,
		Limit:         limit,
	})
	if err != nil {
		m.emit(ctx, started, auditErr(OpInventoryArtifacts, req.TenantID, errOutcome(err)))
		return nil, err
	}

	pointers := inv.Pointers
	if pointers == nil {
		pointers = []datatypes.ArtifactPointer{}
	}
	md := meta(datatypes.SourceStorageMetadata, 0, len(pointers) >= limit, volumeCost(len(pointers)))
	m.emit(ctx, started, auditFor(OpInventoryArtifacts, req.TenantID, extensions.OutcomeOK, md, len(pointers)))
	return &datatypes.InventoryArtifactsResponse{
		ArtifactPointers:        pointers,
		ShipmentManifestPointer: inv.ShipmentManifestPointer,
		StagedCountsByRole:      inv.StagedCounts,
		Metadata:                md,
	}, nil
}

// =============================================================================
// global.ledger.receipts
// =============================================================================

// QueryGlobalLedger queries the authoritative ledger directly. The opt-in
// gate is checked first: when disabled the operation is denied regardless
// of endpoint health, distinctly from an outage. Never part of any other
// operation's fallback chain.
func (m *SourceManager) QueryGlobalLedger(ctx context.Context, req datatypes.GlobalLedgerRequest) (*datatypes.GlobalLedgerResponse, error) {
	ctx, span := tracer.Start(ctx, "QueryGlobalLedger")
	defer span.End()
	started := m.clock.Now()

	if err := req.Validate(); err != nil {
		m.emit(ctx, started, auditErr(OpGlobalLedger, req.TenantID, extensions.OutcomeError))
		return nil, NewValidationError(err.Error())
	}
	span.SetAttributes(
		attribute.String("interview.tenant_id", req.TenantID),
		attribute.String("interview.root_task_id", req.RootTaskID),
	)

	if !m.cfg.AllowGlobalLedger {
		m.emit(ctx, started, auditErr(OpGlobalLedger, req.TenantID, extensions.OutcomeDenied))
		return nil, &GlobalLedgerDisabledError{}
	}

	receipts, err := m.global.QueryReceipts(ctx, req.TenantID, req.RootTaskID)
	if err != nil {
		m.emit(ctx, started, auditErr(OpGlobalLedger, req.TenantID, errOutcome(err)))
		return nil, err
	}
	if receipts == nil {
		receipts = []datatypes.ReceiptHeader{}
	}

	md := meta(datatypes.SourceGlobalLedger, 0, false, costGlobalLedger)
	m.emit(ctx, started, auditFor(OpGlobalLedger, req.TenantID, extensions.OutcomeOK, md, len(receipts)))
	return &datatypes.GlobalLedgerResponse{Receipts: receipts, Metadata: md}, nil
}
