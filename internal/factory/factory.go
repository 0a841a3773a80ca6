package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robofi/dabot/internal/adapters/token"
	"github.com/robofi/dabot/internal/dabot"
	"github.com/robofi/dabot/pkg/logger"
)

// Factory errors
var (
	ErrUnknownTemplate = errors.New("template not registered")
	ErrUnknownBot      = errors.New("bot not found")
)

// Constructor builds a bot instance for a template. Templates may ship
// their own constructor; the default is dabot.New.
type Constructor func(id uint64, address, baseAsset string, tokens token.Transferor) *dabot.Bot

// Notifier receives factory events for operator alerting
type Notifier interface {
	BotDeployed(template, name string, id uint64, address, owner string)
}

// Manager deploys independent bot instances from registered templates and
// tracks them by identifier. All registry state is owned here; there are
// no process-wide singletons.
type Manager struct {
	mu sync.RWMutex

	address   string
	baseAsset string
	tokens    token.Transferor

	templates map[string]Constructor
	bots      map[uint64]*dabot.Bot
	botOrder  []uint64
	nextID    uint64

	repo      *Repository
	persister dabot.Persister
	notifier  Notifier
	clock     func() time.Time
}

// NewManager creates a bot factory. The repository and notifier are
// optional; nextID seeds the identifier sequence (use the stored maximum
// plus one when recovering).
func NewManager(baseAsset string, tokens token.Transferor) *Manager {
	return &Manager{
		address:   uuid.NewString(),
		baseAsset: baseAsset,
		tokens:    tokens,
		templates: make(map[string]Constructor),
		bots:      make(map[uint64]*dabot.Bot),
		nextID:    1,
	}
}

// Address returns the factory's spender identity. Owners approve the init
// deposit to this address before calling DeployBot; custody addresses of
// new bots do not exist yet at approval time.
func (m *Manager) Address() string {
	return m.address
}

// SetRepository attaches deployment persistence
func (m *Manager) SetRepository(repo *Repository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repo = repo
}

// SetPersister attaches the per-bot state mirror handed to new instances
func (m *Manager) SetPersister(p dabot.Persister) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persister = p
}

// SetNotifier attaches an event notifier. Bots deployed afterwards also
// notify if the notifier implements dabot.Notifier.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// SetClock overrides the wall clock handed to new instances, for tests
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = now
}

// SeedNextID sets the next bot identifier, for recovery after restart
func (m *Manager) SeedNextID(next uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next > m.nextID {
		m.nextID = next
	}
}

// AddTemplate registers a prototype under a name. A nil constructor
// registers the default bot implementation.
func (m *Manager) AddTemplate(name string, ctor Constructor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctor == nil {
		ctor = dabot.New
	}
	m.templates[name] = ctor

	logger.Info("bot template registered", zap.String("template", name))
}

// Templates returns the registered template names
func (m *Manager) Templates() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.templates))
	for name := range m.templates {
		out = append(out, name)
	}
	return out
}

// DeployBot instantiates a new bot from a template, decoding the
// fixed-order deploy parameter array [iboTimePacked, stakingTimePacked,
// pricePolicyPacked, profitSharing, initDeposit, initFounderShare,
// maxShareCap, iboShareSupply] and running Init. The owner must have
// approved the init deposit to the new custody address's spender
// beforehand when a deposit is configured.
func (m *Manager) DeployBot(ctx context.Context, template, name, owner string, raw []uint64) (uint64, *dabot.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctor, ok := m.templates[template]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}

	params, err := dabot.ParamsFromArray(name, owner, raw)
	if err != nil {
		return 0, nil, err
	}

	id := m.nextID
	address := uuid.NewString()

	bot := ctor(id, address, m.baseAsset, m.tokens)
	if m.persister != nil {
		bot.SetPersister(m.persister)
	}
	if botNotifier, ok := m.notifier.(dabot.Notifier); ok && botNotifier != nil {
		bot.SetNotifier(botNotifier)
	}
	if m.clock != nil {
		bot.SetClock(m.clock)
	}

	if err := m.delegateInitDeposit(owner, address, params); err != nil {
		return 0, nil, err
	}
	if err := bot.Init(params); err != nil {
		return 0, nil, err
	}

	m.nextID++
	m.bots[id] = bot
	m.botOrder = append(m.botOrder, id)

	if m.repo != nil {
		if err := m.repo.RecordDeployment(ctx, id, template); err != nil {
			logger.Error("failed to record bot deployment",
				zap.Uint64("bot_id", id),
				zap.Error(err),
			)
		}
	}

	logger.Info("bot deployed",
		zap.String("template", template),
		zap.String("name", name),
		zap.Uint64("bot_id", id),
		zap.String("address", address),
		zap.String("owner", owner),
	)

	if m.notifier != nil {
		m.notifier.BotDeployed(template, name, id, address, owner)
	}
	return id, bot, nil
}

// delegateInitDeposit re-targets the owner's factory allowance onto the
// freshly minted custody address, which could not have been approved
// before it existed. The owner's grant to the factory is reduced by the
// same amount. Requires m.mu held.
func (m *Manager) delegateInitDeposit(owner, address string, params dabot.InitParams) error {
	if !params.InitDeposit.IsPositive() {
		return nil
	}

	if m.tokens.Allowance(m.baseAsset, owner, address).GreaterThanOrEqual(params.InitDeposit) {
		return nil
	}

	granted := m.tokens.Allowance(m.baseAsset, owner, m.address)
	if granted.LessThan(params.InitDeposit) {
		return fmt.Errorf("%w: owner has not approved the init deposit to the factory", dabot.ErrTransferFailed)
	}
	if err := m.tokens.Approve(m.baseAsset, owner, m.address, granted.Sub(params.InitDeposit)); err != nil {
		return fmt.Errorf("%w: init deposit delegation: %v", dabot.ErrTransferFailed, err)
	}
	if err := m.tokens.Approve(m.baseAsset, owner, address, params.InitDeposit); err != nil {
		return fmt.Errorf("%w: init deposit delegation: %v", dabot.ErrTransferFailed, err)
	}
	return nil
}

// Bot returns one deployed instance by identifier
func (m *Manager) Bot(id uint64) (*dabot.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bot, ok := m.bots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBot, id)
	}
	return bot, nil
}

// Bots returns all deployed instances in deployment order
func (m *Manager) Bots() []*dabot.Bot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*dabot.Bot, 0, len(m.botOrder))
	for _, id := range m.botOrder {
		out = append(out, m.bots[id])
	}
	return out
}

// QueryBots returns read-only projections of the requested bots
func (m *Manager) QueryBots(ids []uint64) ([]dabot.Details, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]dabot.Details, 0, len(ids))
	for _, id := range ids {
		bot, ok := m.bots[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownBot, id)
		}
		out = append(out, bot.Details())
	}
	return out, nil
}
