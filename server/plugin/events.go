package plugin

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/go-gl/mathgl/mgl64"
)

type eventRegistration[T any] struct {
	plugin  string
	handler T
	id      uint64
}

type eventList[T any] struct {
	regs []eventRegistration[T]
	next uint64
}

func (l *eventList[T]) add(plugin string, handler T) uint64 {
	id := l.next
	l.next++
	l.regs = append(l.regs, eventRegistration[T]{plugin: plugin, handler: handler, id: id})
	return id
}

func (l *eventList[T]) removeByID(id uint64) {
	if len(l.regs) == 0 {
		return
	}
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.id == id {
			continue
		}
		regs = append(regs, reg)
	}
	l.regs = regs
}

func (l *eventList[T]) removePlugin(plugin string) {
	if len(l.regs) == 0 {
		return
	}
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.plugin == plugin {
			continue
		}
		regs = append(regs, reg)
	}
	l.regs = regs
}

func (l *eventList[T]) rename(oldName, newName string) {
	if oldName == newName || len(l.regs) == 0 {
		return
	}
	for i := range l.regs {
		if l.regs[i].plugin == oldName {
			l.regs[i].plugin = newName
		}
	}
}

func (l *eventList[T]) snapshot() []eventRegistration[T] {
	if len(l.regs) == 0 {
		return nil
	}
	out := make([]eventRegistration[T], len(l.regs))
	copy(out, l.regs)
	return out
}

type eventHub[S any, C any] struct {
	mu          sync.Mutex
	log         *slog.Logger
	manager     *Manager[S, C]
	player      eventList[player.Handler]
	world       eventList[world.Handler]
	playerChain atomic.Value // []eventRegistration[player.Handler]
	worldChain  atomic.Value // []eventRegistration[world.Handler]
}

func newEventHub[S any, C any](manager *Manager[S, C], log *slog.Logger) *eventHub[S, C] {
	if log == nil {
		log = slog.Default()
	}
	hub := &eventHub[S, C]{manager: manager, log: log.With("subsystem", "plugin.events")}
	hub.playerChain.Store([]eventRegistration[player.Handler]{})
	hub.worldChain.Store([]eventRegistration[world.Handler]{})
	return hub
}

func (pe *eventHub[S, C]) addPlayer(plugin string, handler player.Handler) func() {
	if handler == nil {
		return func() {}
	}
	pe.mu.Lock()
	id := pe.player.add(plugin, handler)
	pe.playerChain.Store(pe.player.snapshot())
	pe.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			pe.mu.Lock()
			pe.player.removeByID(id)
			pe.playerChain.Store(pe.player.snapshot())
			pe.mu.Unlock()
		})
	}
}

func (pe *eventHub[S, C]) addWorld(plugin string, handler world.Handler) func() {
	if handler == nil {
		return func() {}
	}
	pe.mu.Lock()
	id := pe.world.add(plugin, handler)
	pe.worldChain.Store(pe.world.snapshot())
	pe.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			pe.mu.Lock()
			pe.world.removeByID(id)
			pe.worldChain.Store(pe.world.snapshot())
			pe.mu.Unlock()
		})
	}
}

func (pe *eventHub[S, C]) clear(plugin string) {
	pe.mu.Lock()
	pe.player.removePlugin(plugin)
	pe.world.removePlugin(plugin)
	pe.playerChain.Store(pe.player.snapshot())
	pe.worldChain.Store(pe.world.snapshot())
	pe.mu.Unlock()
}

func (pe *eventHub[S, C]) rename(oldName, newName string) {
	if newName == "" || oldName == newName {
		return
	}
	pe.mu.Lock()
	pe.player.rename(oldName, newName)
	pe.world.rename(oldName, newName)
	pe.playerChain.Store(pe.player.snapshot())
	pe.worldChain.Store(pe.world.snapshot())
	pe.mu.Unlock()
}

func (pe *eventHub[S, C]) loadPlayerChain() []eventRegistration[player.Handler] {
	if v := pe.playerChain.Load(); v != nil {
		return v.([]eventRegistration[player.Handler])
	}
	return nil
}

func (pe *eventHub[S, C]) loadWorldChain() []eventRegistration[world.Handler] {
	if v := pe.worldChain.Load(); v != nil {
		return v.([]eventRegistration[world.Handler])
	}
	return nil
}

func (pe *eventHub[S, C]) wrapPlayer(_ *player.Player, base player.Handler) player.Handler {
	if chain, ok := base.(*playerHandlerChain[S, C]); ok {
		base = chain.Handler
	}
	if base == nil {
		base = player.NopHandler{}
	}
	return &playerHandlerChain[S, C]{Handler: base, manager: pe}
}

func (pe *eventHub[S, C]) wrapWorld(_ *world.World, base world.Handler) world.Handler {
	if chain, ok := base.(*worldHandlerChain[S, C]); ok {
		base = chain.Handler
	}
	if base == nil {
		base = world.NopHandler{}
	}
	return &worldHandlerChain[S, C]{Handler: base, manager: pe}
}

type cancellable interface {
	Cancelled() bool
}

// playerHandlerChain fans the player events plugins may observe out to every registered handler before the
// base handler. Events not implemented here go to the base handler only.
type playerHandlerChain[S any, C any] struct {
	player.Handler
	manager *eventHub[S, C]
}

func (c *playerHandlerChain[S, C]) callCtx(ctx cancellable, fn func(player.Handler)) {
	for _, reg := range c.manager.loadPlayerChain() {
		handler := reg.handler
		c.manager.invoke(reg.plugin, func() {
			fn(handler)
		})
		if ctx.Cancelled() {
			return
		}
	}
	fn(c.Handler)
}

func (c *playerHandlerChain[S, C]) call(fn func(player.Handler)) {
	for _, reg := range c.manager.loadPlayerChain() {
		handler := reg.handler
		c.manager.invoke(reg.plugin, func() {
			fn(handler)
		})
	}
	fn(c.Handler)
}

func (c *playerHandlerChain[S, C]) HandleBlockBreak(ctx *player.Context, pos cube.Pos, drops *[]item.Stack, xp *int) {
	c.callCtx(ctx, func(h player.Handler) { h.HandleBlockBreak(ctx, pos, drops, xp) })
}

func (c *playerHandlerChain[S, C]) HandleBlockPlace(ctx *player.Context, pos cube.Pos, b world.Block) {
	c.callCtx(ctx, func(h player.Handler) { h.HandleBlockPlace(ctx, pos, b) })
}

func (c *playerHandlerChain[S, C]) HandleItemUseOnBlock(ctx *player.Context, pos cube.Pos, face cube.Face, clickPos mgl64.Vec3) {
	c.callCtx(ctx, func(h player.Handler) { h.HandleItemUseOnBlock(ctx, pos, face, clickPos) })
}

func (c *playerHandlerChain[S, C]) HandleAttackEntity(ctx *player.Context, e world.Entity, force, height *float64, critical *bool) {
	c.callCtx(ctx, func(h player.Handler) { h.HandleAttackEntity(ctx, e, force, height, critical) })
}

func (c *playerHandlerChain[S, C]) HandleQuit(p *player.Player) {
	c.call(func(h player.Handler) { h.HandleQuit(p) })
}

// worldHandlerChain fans world events out to plugin handlers before the base handler. Besides the world.Handler
// events implemented here, it forwards MobSpawner spawn attempts and creature deaths to the handlers that
// implement block.SpawnerHandler and entity.DeathHandler.
type worldHandlerChain[S any, C any] struct {
	world.Handler
	manager *eventHub[S, C]
}

func (c *worldHandlerChain[S, C]) call(fn func(world.Handler)) {
	for _, reg := range c.manager.loadWorldChain() {
		handler := reg.handler
		c.manager.invoke(reg.plugin, func() {
			fn(handler)
		})
	}
	fn(c.Handler)
}

func (c *worldHandlerChain[S, C]) HandleEntitySpawn(tx *world.Tx, e world.Entity) {
	c.call(func(h world.Handler) { h.HandleEntitySpawn(tx, e) })
}

func (c *worldHandlerChain[S, C]) HandleClose(tx *world.Tx) {
	c.call(func(h world.Handler) { h.HandleClose(tx) })
}

func (c *worldHandlerChain[S, C]) HandleSpawnerSpawn(ctx *world.Context, pos cube.Pos, s block.MobSpawner, conf *entity.CreatureConfig) {
	for _, reg := range c.manager.loadWorldChain() {
		h, ok := reg.handler.(block.SpawnerHandler)
		if !ok {
			continue
		}
		c.manager.invoke(reg.plugin, func() {
			h.HandleSpawnerSpawn(ctx, pos, s, conf)
		})
		if ctx.Cancelled() {
			return
		}
	}
	if h, ok := c.Handler.(block.SpawnerHandler); ok {
		h.HandleSpawnerSpawn(ctx, pos, s, conf)
	}
}

func (c *worldHandlerChain[S, C]) HandleCreatureDeath(tx *world.Tx, cr *entity.Creature, killer world.Entity, drops *[]item.Stack) {
	for _, reg := range c.manager.loadWorldChain() {
		h, ok := reg.handler.(entity.DeathHandler)
		if !ok {
			continue
		}
		c.manager.invoke(reg.plugin, func() {
			h.HandleCreatureDeath(tx, cr, killer, drops)
		})
	}
	if h, ok := c.Handler.(entity.DeathHandler); ok {
		h.HandleCreatureDeath(tx, cr, killer, drops)
	}
}

func (pe *eventHub[S, C]) invoke(plugin string, call func()) {
	if call == nil {
		return
	}
	if plugin == "" {
		call()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			pe.manager.handlePluginPanic(plugin, r)
		}
	}()
	call()
}

var (
	_ block.SpawnerHandler = (*worldHandlerChain[struct{}, struct{}])(nil)
	_ entity.DeathHandler  = (*worldHandlerChain[struct{}, struct{}])(nil)
)
