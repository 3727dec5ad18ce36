// Package contacts implements the contact reconciliation engine: it merges
// device address-book contacts with remote directory results into a
// canonical in-memory snapshot, persists it, and serves fast synchronous
// lookups to many concurrent readers.
package contacts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/contact-sync/internal/addressbook"
	"github.com/contact-sync/internal/directory"
	apperrors "github.com/contact-sync/internal/errors"
	"github.com/contact-sync/internal/logging"
	"github.com/contact-sync/internal/phone"
	"github.com/contact-sync/internal/securestore"
	"github.com/contact-sync/internal/types"
)

const (
	// defaultBatchSize bounds directory lookup request size and isolates
	// partial failures per batch
	defaultBatchSize = 50

	// maxInitialLoadWait bounds how long a waiting lookup blocks on the
	// initial snapshot load before degrading to the current state
	maxInitialLoadWait = 10 * time.Second
)

// ServiceConfig configures the reconciliation engine
type ServiceConfig struct {
	Accessor      addressbook.Accessor
	Directory     directory.Client
	Store         securestore.Store
	ServiceName   string           // secure store service name for snapshots
	DefaultRegion string           // region hint for numbers without a country code
	BatchSize     int              // phones per directory lookup batch
	Now           func() time.Time // test hook; defaults to time.Now
}

// Service is the contact reconciliation engine. One instance owns the
// in-memory snapshot; every other component only reads through its API.
//
// Lifecycle: Unloaded -> Loading -> Loaded, re-entering Loading on each
// reconciliation pass. Reads are valid in any state and degrade to empty
// results while nothing is loaded. Overlapping Reconcile calls are allowed;
// the last to finish wins by replacing the snapshot.
type Service struct {
	accessor    addressbook.Accessor
	client      directory.Client
	store       securestore.Store
	normalizer  *phone.Normalizer
	serviceName string
	batchSize   int
	now         func() time.Time

	mu           sync.RWMutex
	state        types.SyncState
	array        []*types.ContactRecord
	index        map[string]*types.ContactRecord
	lookup       *lookupIndex
	loadInFlight bool
	loadedCh     chan struct{}
	loadedClosed bool
}

// NewService creates a reconciliation engine
func NewService(cfg *ServiceConfig) *Service {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "contact-sync"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	region := cfg.DefaultRegion
	if region == "" {
		region = "US"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		accessor:    cfg.Accessor,
		client:      cfg.Directory,
		store:       cfg.Store,
		normalizer:  phone.NewNormalizer(region),
		serviceName: serviceName,
		batchSize:   batchSize,
		now:         now,
		state:       types.StateUnloaded,
		index:       make(map[string]*types.ContactRecord),
		loadedCh:    make(chan struct{}),
	}
}

// State returns the current engine lifecycle state
func (s *Service) State() types.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// HasPermission reports whether address-book access is granted
func (s *Service) HasPermission(ctx context.Context) bool {
	state, err := s.accessor.CheckPermission(ctx)
	if err != nil {
		return false
	}
	s.persistPermission(ctx, state)
	return state == types.PermissionGranted
}

// RequestPermission triggers the OS prompt when permission is pending and
// reports whether access ended up granted. Idempotent: granted and denied
// states are sticky.
func (s *Service) RequestPermission(ctx context.Context) (bool, error) {
	state, err := s.accessor.RequestPermission(ctx)
	if err != nil {
		return false, apperrors.NewReadFailureError(err)
	}
	s.persistPermission(ctx, state)
	return state == types.PermissionGranted, nil
}

// PersistedPermission returns the last persisted permission decision,
// consulted on launch before any address-book read is attempted
func (s *Service) PersistedPermission(ctx context.Context) types.PermissionState {
	value, err := s.store.Get(ctx, s.serviceName, permissionKey)
	if err != nil {
		return types.PermissionPending
	}
	switch state := types.PermissionState(value); state {
	case types.PermissionGranted, types.PermissionDenied:
		return state
	default:
		return types.PermissionPending
	}
}

// persistPermission records a settled permission decision, best effort
func (s *Service) persistPermission(ctx context.Context, state types.PermissionState) {
	if state == types.PermissionPending {
		return
	}
	if err := s.store.Set(ctx, s.serviceName, permissionKey, string(state)); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to persist permission state")
	}
}

// Reconcile runs one full reconciliation pass: read the device address
// book, normalize every phone, query the remote directory in batches,
// merge, persist the snapshot, and swap it into memory. The new snapshot
// becomes visible to readers only after the whole pass succeeds.
func (s *Service) Reconcile(ctx context.Context) (*types.ReconcileResult, error) {
	logger := logging.FromContext(ctx).WithField("component", "contacts")

	permission, err := s.accessor.CheckPermission(ctx)
	if err != nil {
		return nil, apperrors.NewReadFailureError(err)
	}
	if permission != types.PermissionGranted {
		// A normal outcome, recoverable only by user action
		s.persistPermission(ctx, permission)
		return nil, apperrors.NewPermissionDeniedError(permission)
	}
	s.persistPermission(ctx, permission)

	previous := s.enterLoading()

	devices, err := s.accessor.GetAll(ctx)
	if err != nil {
		s.exitLoading(previous)
		return nil, apperrors.NewReadFailureError(err)
	}

	// An empty device address book is a valid result, distinct from a
	// read failure: persist an empty snapshot.
	array, index, byPhone := s.buildProvisional(devices)

	memberCount := s.resolveMembers(ctx, logger, array, byPhone)

	if err := s.persistSnapshot(ctx, array, index); err != nil {
		s.exitLoading(previous)
		return nil, err
	}

	s.swapSnapshot(array, index)

	logger.WithFields(map[string]interface{}{
		"reconciled": len(array),
		"members":    memberCount,
	}).Info("Reconciliation pass completed")

	return &types.ReconcileResult{
		ReconciledCount: len(array),
		MemberCount:     memberCount,
	}, nil
}

// buildProvisional constructs the provisional records, the normalized-key
// index, and the phone->records matching map from one device read.
//
// Index collisions follow last-write-wins by device order: the canonical
// match is keyed by phone, not name. Array entries are deduplicated by
// (name, first raw phone), one entry per address-book person; a true
// duplicate entry shares the record instance so membership can never
// diverge between the two views.
func (s *Service) buildProvisional(devices []addressbook.DeviceContact) (
	[]*types.ContactRecord,
	map[string]*types.ContactRecord,
	map[string][]*types.ContactRecord,
) {
	syncedAt := s.now().UTC()

	array := make([]*types.ContactRecord, 0, len(devices))
	index := make(map[string]*types.ContactRecord)
	byPhone := make(map[string][]*types.ContactRecord)
	recordByDedup := make(map[string]*types.ContactRecord)

	for _, device := range devices {
		if len(device.PhoneNumbers) == 0 {
			continue
		}

		raws := make([]string, 0, len(device.PhoneNumbers))
		for _, p := range device.PhoneNumbers {
			raws = append(raws, p.Number)
		}

		normalized := make([]string, 0, len(raws)*2)
		for _, raw := range raws {
			normalized = append(normalized, s.normalizer.Keys(raw)...)
		}

		record := &types.ContactRecord{
			ID:               device.RecordID,
			Name:             device.Name(),
			PhoneNumbers:     raws,
			NormalizedPhones: normalized,
			LastSyncedAt:     syncedAt,
		}
		if device.HasThumbnail {
			record.AvatarRef = device.ThumbnailRef
		}

		dedup := record.DedupKey()
		if existing, ok := recordByDedup[dedup]; ok {
			record = existing
		} else {
			recordByDedup[dedup] = record
			array = append(array, record)
		}

		for _, key := range record.NormalizedPhones {
			if key != "" {
				index[key] = record
			}
		}

		registerPhones(byPhone, record.PhoneNumbers, record)
		registerPhones(byPhone, record.NormalizedPhones, record)
	}

	return array, index, byPhone
}

// registerPhones adds record under each phone form, skipping empties and
// avoiding duplicate registrations for the same record
func registerPhones(byPhone map[string][]*types.ContactRecord, phones []string, record *types.ContactRecord) {
	for _, p := range phones {
		if p == "" {
			continue
		}
		existing := byPhone[p]
		duplicate := false
		for _, r := range existing {
			if r == record {
				duplicate = true
				break
			}
		}
		if !duplicate {
			byPhone[p] = append(byPhone[p], record)
		}
	}
}

// resolveMembers submits the deduplicated raw phone set to the directory
// in fixed-size batches and upgrades every matching record. A batch
// failure is logged and absorbed: its numbers are treated as non-members
// for this pass while the remaining batches still complete.
func (s *Service) resolveMembers(
	ctx context.Context,
	logger *logging.Logger,
	array []*types.ContactRecord,
	byPhone map[string][]*types.ContactRecord,
) int {
	rawPhones := dedupRawPhones(array)

	for batchNum := 0; batchNum*s.batchSize < len(rawPhones); batchNum++ {
		start := batchNum * s.batchSize
		end := start + s.batchSize
		if end > len(rawPhones) {
			end = len(rawPhones)
		}
		batch := rawPhones[start:end]

		members, err := s.client.LookupPhones(ctx, batch)
		if err != nil {
			batchErr := apperrors.NewLookupBatchFailureError(batchNum+1, len(batch), err)
			logger.WithError(batchErr).Warn("Directory lookup batch failed, treating its numbers as non-members")
			continue
		}

		for _, member := range members {
			s.applyMember(member, byPhone)
		}
	}

	memberCount := 0
	for _, record := range array {
		if record.IsDirectoryMember {
			memberCount++
		}
	}
	return memberCount
}

// dedupRawPhones collects the deduplicated set of raw phone numbers across
// all records, preserving first-seen order so batch composition is
// deterministic
func dedupRawPhones(array []*types.ContactRecord) []string {
	seen := make(map[string]bool)
	var phones []string
	for _, record := range array {
		for _, raw := range record.PhoneNumbers {
			if raw == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			phones = append(phones, raw)
		}
	}
	return phones
}

// applyMember upgrades every provisional record whose raw or normalized
// phone list contains the reported number. The directory may answer with
// the raw form it was queried with or with the canonical form, so both
// the number and its normalized keys are tried.
func (s *Service) applyMember(member types.DirectoryMember, byPhone map[string][]*types.ContactRecord) {
	candidates := byPhone[member.PhoneNumber]
	for _, key := range s.normalizer.Keys(member.PhoneNumber) {
		candidates = append(candidates, byPhone[key]...)
	}

	for _, record := range candidates {
		record.SetDirectoryIdentity(member.UserID, member.Handle, member.WalletAddress)
	}
}

// persistSnapshot writes both snapshot blobs to the secure store. The
// in-memory state is only replaced after this succeeds, so readers never
// observe a snapshot that could not be persisted.
func (s *Service) persistSnapshot(ctx context.Context, array []*types.ContactRecord, index map[string]*types.ContactRecord) error {
	arrayJSON, err := encodeArray(array)
	if err != nil {
		return apperrors.NewPersistenceFailureError("serialize array", err)
	}
	indexJSON, err := encodeIndex(index)
	if err != nil {
		return apperrors.NewPersistenceFailureError("serialize index", err)
	}

	if err := s.store.Set(ctx, s.serviceName, snapshotArrayKey, arrayJSON); err != nil {
		return apperrors.NewPersistenceFailureError("write array", err)
	}
	if err := s.store.Set(ctx, s.serviceName, snapshotIndexKey, indexJSON); err != nil {
		return apperrors.NewPersistenceFailureError("write index", err)
	}
	return nil
}

// enterLoading moves the engine into Loading and returns the prior state
func (s *Service) enterLoading() types.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.state
	s.state = types.StateLoading
	return previous
}

// exitLoading restores the prior state after a failed pass; the previous
// snapshot stays authoritative
func (s *Service) exitLoading(previous types.SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.StateLoading {
		s.state = previous
	}
}

// swapSnapshot atomically replaces the in-memory snapshot and invalidates
// the lookup cache
func (s *Service) swapSnapshot(array []*types.ContactRecord, index map[string]*types.ContactRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.array = array
	s.index = index
	s.lookup = nil
	s.state = types.StateLoaded
	s.markLoadedLocked()
}

func (s *Service) markLoadedLocked() {
	if !s.loadedClosed {
		close(s.loadedCh)
		s.loadedClosed = true
	}
}

// GetAll returns the current in-memory array immediately. When nothing is
// loaded yet it kicks off a background snapshot load and returns an empty
// result for this call; it never blocks.
func (s *Service) GetAll(ctx context.Context) []*types.ContactRecord {
	s.mu.Lock()
	s.triggerLoadLocked()
	out := make([]*types.ContactRecord, len(s.array))
	copy(out, s.array)
	s.mu.Unlock()
	return out
}

// triggerLoadLocked starts the background snapshot load when the engine is
// still Unloaded. Caller must hold s.mu.
func (s *Service) triggerLoadLocked() {
	if s.state != types.StateUnloaded || s.loadInFlight {
		return
	}
	s.loadInFlight = true
	s.state = types.StateLoading
	go s.backgroundLoad()
}

// backgroundLoad restores the persisted snapshot into memory. It races
// with an explicit Reconcile by design; if a reconciliation pass finished
// first, its fresher snapshot is kept.
func (s *Service) backgroundLoad() {
	ctx := context.Background()
	array, index, err := s.loadPersisted(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadInFlight = false

	if err != nil {
		logging.GetGlobalLogger().WithError(err).Warn("Failed to load persisted contact snapshot")
		if s.state == types.StateLoading {
			s.state = types.StateUnloaded
		}
		// Unblock waiters; they degrade to empty results
		s.markLoadedLocked()
		return
	}

	if s.state == types.StateLoaded {
		s.markLoadedLocked()
		return
	}

	s.array = array
	s.index = index
	s.lookup = nil
	s.state = types.StateLoaded
	s.markLoadedLocked()
}

// loadPersisted reads the snapshot from the secure store. The array blob
// is the fast path; older snapshots that only wrote the index blob are
// still readable through deduplication. Nothing stored is a normal empty
// result.
func (s *Service) loadPersisted(ctx context.Context) ([]*types.ContactRecord, map[string]*types.ContactRecord, error) {
	arrayJSON, err := s.store.Get(ctx, s.serviceName, snapshotArrayKey)
	if err == nil {
		array, decodeErr := decodeArray(arrayJSON)
		if decodeErr != nil {
			return nil, nil, apperrors.NewPersistenceFailureError("decode array", decodeErr)
		}
		return array, indexFromArray(array), nil
	}
	if !errors.Is(err, securestore.ErrNotFound) {
		return nil, nil, apperrors.NewPersistenceFailureError("read array", err)
	}

	indexJSON, err := s.store.Get(ctx, s.serviceName, snapshotIndexKey)
	if err == nil {
		index, decodeErr := decodeIndex(indexJSON)
		if decodeErr != nil {
			return nil, nil, apperrors.NewPersistenceFailureError("decode index", decodeErr)
		}
		return arrayFromIndex(index), index, nil
	}
	if !errors.Is(err, securestore.ErrNotFound) {
		return nil, nil, apperrors.NewPersistenceFailureError("read index", err)
	}

	return []*types.ContactRecord{}, make(map[string]*types.ContactRecord), nil
}

// Preload loads the persisted snapshot and waits for it, bounded by ctx.
// Used for the best-effort warm-up on process start.
func (s *Service) Preload(ctx context.Context) {
	s.mu.Lock()
	s.triggerLoadLocked()
	ch := s.loadedCh
	s.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// LookupByPhone resolves a phone string to a contact record synchronously,
// or nil when nothing matches. The lookup cache is rebuilt lazily from the
// current array on the first call after a snapshot swap. No I/O, no
// mutation.
func (s *Service) LookupByPhone(phoneNumber string) *types.ContactRecord {
	s.mu.Lock()
	if s.lookup == nil {
		s.lookup = buildLookupIndex(s.array)
	}
	idx := s.lookup
	s.mu.Unlock()

	return idx.find(phoneNumber, s.normalizer)
}

// LookupByPhoneWait resolves a phone string, waiting for the initial
// snapshot load when nothing is in memory yet. The wait is bounded; on
// timeout the lookup degrades to the current state.
func (s *Service) LookupByPhoneWait(ctx context.Context, phoneNumber string) (*types.ContactRecord, error) {
	s.mu.Lock()
	s.triggerLoadLocked()
	ch := s.loadedCh
	s.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(maxInitialLoadWait):
	}

	return s.LookupByPhone(phoneNumber), nil
}

// Clear wipes the persisted and in-memory state. Used on logout or when
// the user revokes address-book access and asks for their data to go.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Reset(ctx, s.serviceName); err != nil {
		return apperrors.NewPersistenceFailureError("reset", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.array = nil
	s.index = make(map[string]*types.ContactRecord)
	s.lookup = nil
	s.state = types.StateUnloaded
	if s.loadedClosed {
		s.loadedCh = make(chan struct{})
		s.loadedClosed = false
	}
	return nil
}
