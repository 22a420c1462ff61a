// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package presentation

import (
	"context"
	"errors"
	"sync"

	"github.com/janderssonse/applist/internal/application"
	"go.uber.org/zap"
)

// Loader runs one aggregation, emitting its snapshots in order.
type Loader interface {
	Load(ctx context.Context, opts application.LoadOptions, emit func(application.Snapshot)) error
}

// ViewModel serialises events through Reduce, runs the Loads it asks for
// and publishes every new State to subscribers.
type ViewModel struct {
	loader Loader
	logger *zap.Logger

	ctx    context.Context //nolint:containedctx // lifetime of background loads
	cancel context.CancelFunc
	runs   sync.WaitGroup

	mu          sync.Mutex
	state       State
	subscribers map[int]chan State
	nextID      int

	// runGen and runCancel belong to the newest started load.
	runGen    uint64
	runCancel context.CancelFunc
}

// NewViewModel creates a view model. Loads run until they finish or ctx ends.
func NewViewModel(ctx context.Context, loader Loader, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &ViewModel{
		loader:      loader,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		state:       InitialState(),
		subscribers: make(map[int]chan State),
	}
}

// State returns the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.state
}

// Subscribe returns a channel receiving the latest state after every
// transition, starting with the current one. Slow readers only see the
// newest state. The returned func unsubscribes.
func (vm *ViewModel) Subscribe() (<-chan State, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	id := vm.nextID
	vm.nextID++

	ch := make(chan State, 1)
	ch <- vm.state
	vm.subscribers[id] = ch

	return ch, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		if sub, ok := vm.subscribers[id]; ok {
			delete(vm.subscribers, id)
			close(sub)
		}
	}
}

// Dispatch applies ev and starts a load if one is needed.
func (vm *ViewModel) Dispatch(ev Event) {
	vm.mu.Lock()

	next, load := Reduce(vm.state, ev)
	vm.state = next
	vm.publish(next)

	vm.mu.Unlock()

	if load != nil {
		vm.start(*load)
	}
}

// Wait blocks until every started load has finished.
func (vm *ViewModel) Wait() {
	vm.runs.Wait()
}

// Close cancels running loads, waits for them and closes all subscriptions.
func (vm *ViewModel) Close() {
	vm.cancel()
	vm.runs.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()

	for id, sub := range vm.subscribers {
		delete(vm.subscribers, id)
		close(sub)
	}
}

// publish must be called with mu held.
func (vm *ViewModel) publish(s State) {
	for _, sub := range vm.subscribers {
		select {
		case <-sub:
		default:
		}

		select {
		case sub <- s:
		default:
		}
	}
}

// start runs load in the background. A newer load cancels older ones.
func (vm *ViewModel) start(load Load) {
	ctx, cancel := context.WithCancel(vm.ctx)

	vm.mu.Lock()
	if load.Generation > vm.runGen {
		if vm.runCancel != nil {
			vm.runCancel()
		}

		vm.runGen, vm.runCancel = load.Generation, cancel
	} else {
		cancel()
	}
	vm.mu.Unlock()

	vm.runs.Add(1)

	go func() {
		defer vm.runs.Done()
		defer cancel()

		vm.logger.Debug("starting load",
			zap.Uint64("generation", load.Generation),
			zap.Stringer("field", load.Options.Field),
			zap.Bool("reload", load.Options.Reload))

		err := vm.loader.Load(ctx, load.Options, func(s application.Snapshot) {
			vm.Dispatch(Loaded{Generation: load.Generation, Snapshot: s})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			vm.Dispatch(LoadFailed{Generation: load.Generation, Err: err})
		}
	}()
}
