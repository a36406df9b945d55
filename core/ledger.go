package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"foodcourt/core/events"
	"foodcourt/core/state"
	"foodcourt/core/types"
	"foodcourt/crypto"
	nativecommon "foodcourt/native/common"
	"foodcourt/native/participants"
	"foodcourt/observability"
	"foodcourt/observability/metrics"
	fcotel "foodcourt/observability/otel"
	"foodcourt/storage"
	statetrie "foodcourt/storage/trie"
)

// Genesis fixes the registry parameters for the lifetime of a ledger. Owner and
// Profile are persisted on first start and verified on every restart.
type Genesis struct {
	ChainID        uint64
	Owner          [20]byte
	Profile        participants.Profile
	Policy         participants.RegistrationPolicy
	MutationEvents bool
	Quota          nativecommon.Quota
}

// EventJournal receives committed events. core/journal.Journal satisfies it.
type EventJournal interface {
	Append(height uint64, txHash [32]byte, evs []types.Event) error
}

// Options carries optional collaborators. Nil fields select no-op behaviour.
type Options struct {
	Logger      *slog.Logger
	Pauses      nativecommon.PauseView
	Journal     EventJournal
	Broadcaster *events.Broadcaster
	Metrics     *metrics.ParticipantsMetrics
	Now         func() time.Time
}

// Ledger executes signed registry transactions one at a time against the
// state trie. Each transaction either commits completely, advancing the height
// and the root, or leaves no trace.
type Ledger struct {
	mu sync.Mutex

	db        storage.Database
	trie      *statetrie.Trie
	manager   *state.Manager
	registry  *participants.Registry
	collector *events.Collector

	chainID uint64
	quota   nativecommon.Quota
	height  uint64
	closed  bool

	logger      *slog.Logger
	journal     EventJournal
	broadcaster *events.Broadcaster
	metrics     *metrics.ParticipantsMetrics
	now         func() time.Time
}

// NewLedger opens the ledger stored in db. On an empty database the genesis
// registry meta is written and committed at height zero; otherwise the stored
// owner and profile must match genesis.
func NewLedger(db storage.Database, genesis Genesis, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database required")
	}
	var root []byte
	storedRoot, err := db.Get(state.LedgerRootKey())
	switch {
	case err == nil:
		root = storedRoot
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("ledger: load root: %w", err)
	}
	var height uint64
	storedHeight, err := db.Get(state.LedgerHeightKey())
	switch {
	case err == nil:
		height = state.DecodeHeight(storedHeight)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("ledger: load height: %w", err)
	}

	tr, err := statetrie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("ledger: open trie: %w", err)
	}
	manager := state.NewManager(tr)
	collector := &events.Collector{}

	registry := participants.NewRegistry(manager, genesis.Owner, genesis.Profile)
	registry.SetEmitter(collector)
	registry.SetRegistrationPolicy(genesis.Policy)
	registry.SetMutationEvents(genesis.MutationEvents)
	registry.SetPauses(opts.Pauses)
	if opts.Metrics != nil {
		registry.SetObserver(opts.Metrics)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := &Ledger{
		db:          db,
		trie:        tr,
		manager:     manager,
		registry:    registry,
		collector:   collector,
		chainID:     genesis.ChainID,
		quota:       genesis.Quota,
		height:      height,
		logger:      logger.With(slog.String("component", "ledger")),
		journal:     opts.Journal,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		now:         now,
	}

	initialised, err := registry.VerifyGenesis()
	if err != nil {
		return nil, err
	}
	if !initialised {
		if err := registry.InitGenesis(); err != nil {
			return nil, err
		}
		genesisRoot, err := manager.Commit(0)
		if err != nil {
			return nil, fmt.Errorf("ledger: commit genesis: %w", err)
		}
		if err := l.persistHead(genesisRoot, 0); err != nil {
			return nil, err
		}
		l.logger.Info("genesis written",
			slog.String("owner", crypto.FromBytes20(genesis.Owner).String()),
			slog.String("profile", genesis.Profile.Name),
			slog.String("root", genesisRoot.Hex()))
	}
	l.metrics.SetHeight(l.height)
	return l, nil
}

// Submit verifies and executes tx. Cancellation of ctx is honoured until
// execution begins; once the registry runs, the transaction completes.
func (l *Ledger) Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	ctx, span := fcotel.Tracer().Start(ctx, "ledger.Submit",
		trace.WithAttributes(
			attribute.String("tx.type", tx.Type.String()),
			attribute.Int64("tx.nonce", int64(tx.Nonce)),
		))
	defer span.End()

	receipt, err := l.submit(ctx, tx)
	outcome := "ok"
	if err != nil {
		outcome = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(attribute.Int64("ledger.height", int64(receipt.Height)))
	}
	l.metrics.ObserveTransaction(tx.Type.String(), outcome)
	return receipt, err
}

func (l *Ledger) submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx.ChainID != l.chainID {
		return nil, fmt.Errorf("%w: got %d want %d", ErrChainIDMismatch, tx.ChainID, l.chainID)
	}
	from, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var sender [20]byte
	copy(sender[:], from)
	hashBytes, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	var txHash [32]byte
	copy(txHash[:], hashBytes)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := l.logger.With(
		slog.String("txHash", common.Bytes2Hex(txHash[:])),
		slog.String("txType", tx.Type.String()),
		slog.String("sender", crypto.FromBytes20(sender).String()),
	)

	if err := l.execute(tx, sender); err != nil {
		l.collector.Reset()
		if revertErr := l.manager.Revert(); revertErr != nil {
			logger.Error("revert failed", slog.Any("error", revertErr))
			return nil, errors.Join(err, revertErr)
		}
		logger.Info("transaction rejected", slog.Any("error", err))
		return nil, err
	}

	parent := l.manager.Root()
	height := l.height + 1
	root, err := l.manager.Commit(height)
	if err != nil {
		l.collector.Reset()
		if revertErr := l.manager.Revert(); revertErr != nil {
			logger.Error("revert failed", slog.Any("error", revertErr))
		}
		return nil, fmt.Errorf("ledger: commit: %w", err)
	}
	if err := l.persistHead(root, height); err != nil {
		l.collector.Reset()
		if revertErr := l.manager.RevertTo(parent); revertErr != nil {
			logger.Error("revert to parent root failed", slog.Any("error", revertErr))
			return nil, errors.Join(err, revertErr)
		}
		return nil, err
	}
	l.height = height
	l.metrics.SetHeight(height)

	emitted := l.collector.Drain()
	payloads := make([]types.Event, 0, len(emitted))
	eventMetrics := observability.Events()
	for _, ev := range emitted {
		payload := events.ToPayload(ev)
		payloads = append(payloads, payload)
		eventMetrics.RecordCommitted(payload.Type)
	}
	if l.journal != nil {
		if err := l.journal.Append(height, txHash, payloads); err != nil {
			eventMetrics.RecordJournalFailure()
			logger.Error("journal append failed", slog.Uint64("height", height), slog.Any("error", err))
		}
	}
	l.broadcaster.Publish(height, txHash, payloads)

	logger.Info("transaction committed",
		slog.Uint64("height", height),
		slog.String("root", root.Hex()),
		slog.Int("events", len(payloads)))

	return &types.Receipt{
		TxHash: txHash,
		Type:   tx.Type,
		Sender: sender,
		Nonce:  tx.Nonce,
		Height: height,
		Root:   root,
		Events: payloads,
	}, nil
}

func (l *Ledger) execute(tx *types.Transaction, sender [20]byte) error {
	var expected uint64
	if _, err := l.manager.KVGet(state.LedgerNonceKey(sender[:]), &expected); err != nil {
		return err
	}
	if tx.Nonce != expected {
		return fmt.Errorf("%w: got %d want %d", ErrNonceMismatch, tx.Nonce, expected)
	}
	if err := l.consumeQuota(sender); err != nil {
		return err
	}
	if err := l.dispatch(tx, sender); err != nil {
		return err
	}
	return l.manager.KVPut(state.LedgerNonceKey(sender[:]), expected+1)
}

func (l *Ledger) consumeQuota(sender [20]byte) error {
	if !l.quota.Enabled() {
		return nil
	}
	key := state.LedgerQuotaKey(sender[:])
	var prev nativecommon.QuotaNow
	if _, err := l.manager.KVGet(key, &prev); err != nil {
		return err
	}
	next, err := nativecommon.CheckQuota(l.quota, l.quota.EpochAt(l.now().Unix()), prev, 1)
	if err != nil {
		return err
	}
	return l.manager.KVPut(key, &next)
}

func (l *Ledger) dispatch(tx *types.Transaction, sender [20]byte) error {
	switch tx.Type {
	case types.TxTypeRegisterCustomer:
		var payload types.RegisterCustomerPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", participants.ErrInvalidInput, err)
		}
		return l.registry.RegisterCustomer(sender, participants.Tier(payload.Tier), payload.Balance)
	case types.TxTypeRegisterStore:
		var payload types.RegisterStorePayload
		if err := tx.DecodePayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", participants.ErrInvalidInput, err)
		}
		return l.registry.RegisterStore(sender)
	case types.TxTypeUpdateCustomerTier:
		var payload types.UpdateCustomerTierPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", participants.ErrInvalidInput, err)
		}
		return l.registry.UpdateCustomerTier(sender, payload.Customer, participants.Tier(payload.Tier))
	case types.TxTypeDeleteCustomer:
		var payload types.DeleteCustomerPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", participants.ErrInvalidInput, err)
		}
		return l.registry.DeleteCustomer(sender, payload.Customer)
	case types.TxTypeDeleteStore:
		var payload types.DeleteStorePayload
		if err := tx.DecodePayload(&payload); err != nil {
			return fmt.Errorf("%w: %v", participants.ErrInvalidInput, err)
		}
		return l.registry.DeleteStore(sender, payload.Store)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownTxType, byte(tx.Type))
	}
}

// persistHead writes root and height in one batch so a restart never sees one
// without the other.
func (l *Ledger) persistHead(root common.Hash, height uint64) error {
	batch := l.db.NewBatch()
	if err := batch.Put(state.LedgerRootKey(), root.Bytes()); err != nil {
		return fmt.Errorf("ledger: persist root: %w", err)
	}
	if err := batch.Put(state.LedgerHeightKey(), state.EncodeHeight(height)); err != nil {
		return fmt.Errorf("ledger: persist height: %w", err)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("ledger: persist head: %w", err)
	}
	return nil
}

// Close stops accepting transactions. The database is owned by the caller.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrNonceMismatch):
		return "nonce"
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	case errors.Is(err, ErrChainIDMismatch):
		return "chain_id"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrUnknownTxType):
		return "unknown_type"
	case participants.IsNotFound(err):
		return "not_found"
	case errors.Is(err, participants.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, participants.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, participants.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, participants.ErrModulePaused):
		return "paused"
	default:
		return "error"
	}
}
