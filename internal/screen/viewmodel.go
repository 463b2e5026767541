package screen

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"coffee-kiosk/internal/connectivity"
	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/order"
)

type ViewState string

const (
	StateInitial      ViewState = "initial"
	StateFetchingData ViewState = "fetchingData"
	StateDataFetched  ViewState = "dataFetched"
	StateError        ViewState = "error"
)

type AlertButton struct {
	Text string `json:"text"`
}

// AlertData is the payload the UI presents once and dismisses.
type AlertData struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Button  AlertButton `json:"button"`
}

// Snapshot is the full read model an observer sees after any change.
type Snapshot struct {
	State ViewState         `json:"state"`
	Menu  []models.MenuItem `json:"menu"`
	Alert *AlertData        `json:"alert,omitempty"`
}

// MenuListViewModel drives one menu screen: fetches the menu, places orders,
// and reacts to connectivity transitions by draining the pending queue.
// All state mutation is serialized behind one mutex; after Close every
// delivery is a no-op.
type MenuListViewModel struct {
	repo    *order.Repository
	create  *order.CreateUseCase
	retry   *order.RetryUseCase
	monitor connectivity.Monitor
	log     *zap.Logger

	mu        sync.Mutex
	state     ViewState
	menu      []models.MenuItem
	alert     *AlertData
	closed    bool
	observers map[int]chan Snapshot
	nextObs   int

	unsubscribe func()
	watchDone   chan struct{}
}

func NewMenuListViewModel(repo *order.Repository, create *order.CreateUseCase, retry *order.RetryUseCase, monitor connectivity.Monitor, log *zap.Logger) *MenuListViewModel {
	return &MenuListViewModel{
		repo:      repo,
		create:    create,
		retry:     retry,
		monitor:   monitor,
		log:       log,
		state:     StateInitial,
		observers: make(map[int]chan Snapshot),
		watchDone: make(chan struct{}),
	}
}

// Start begins watching connectivity. An offline→online transition triggers
// one retry pass; entering dataFetched never does.
func (vm *MenuListViewModel) Start(ctx context.Context) {
	ch, cancel := vm.monitor.Subscribe()
	vm.unsubscribe = cancel
	go func() {
		defer close(vm.watchDone)
		for state := range ch {
			if state != connectivity.Online {
				continue
			}
			vm.log.Info("back online, draining pending orders")
			vm.drain(ctx)
		}
	}()
}

// Close tears the screen down. An in-flight retry pass may run to
// completion, but nothing it produces reaches an observer afterwards.
func (vm *MenuListViewModel) Close() {
	if vm.unsubscribe != nil {
		vm.unsubscribe()
		<-vm.watchDone
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.closed = true
	for id, ch := range vm.observers {
		delete(vm.observers, id)
		close(ch)
	}
}

// Load fetches the menu. Safe to call again from error; a no-op once data is
// fetched or while a fetch is in flight.
func (vm *MenuListViewModel) Load(ctx context.Context) {
	vm.mu.Lock()
	if vm.closed || vm.state == StateFetchingData || vm.state == StateDataFetched {
		vm.mu.Unlock()
		return
	}
	vm.mu.Unlock()

	vm.setState(StateFetchingData)

	menu, err := vm.repo.Menu(ctx)
	if err != nil {
		vm.log.Warn("menu fetch failed", zap.Error(err))
		vm.setState(StateError)
		return
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.menu = menu
	vm.state = StateDataFetched
	vm.notifyLocked()
}

// PlaceOrder submits a cart. Submitted and Queued raise no alert; Rejected
// and Failed do.
func (vm *MenuListViewModel) PlaceOrder(ctx context.Context, items []models.OrderItem) (order.Outcome, error) {
	out, err := vm.create.Place(ctx, items)
	switch out.Kind {
	case order.Rejected:
		vm.presentAlert(&AlertData{
			Title:   "Order rejected",
			Message: out.Reason,
			Button:  AlertButton{Text: "OK"},
		})
	case order.Failed:
		vm.presentAlert(&AlertData{
			Title:   "Order failed",
			Message: out.Reason,
			Button:  AlertButton{Text: "OK"},
		})
	}
	return out, err
}

// RetryPending runs a manual retry pass, the same one a connectivity
// recovery triggers.
func (vm *MenuListViewModel) RetryPending(ctx context.Context) (order.Report, error) {
	return vm.drain(ctx)
}

// drain runs one retry pass and surfaces terminal rejections found along the
// way. Network failures during a background drain stay silent; the orders
// remain queued for the next trigger.
func (vm *MenuListViewModel) drain(ctx context.Context) (order.Report, error) {
	rep, err := vm.retry.Run(ctx)
	if err != nil {
		vm.log.Error("retry pass failed", zap.Error(err))
		return rep, err
	}
	if len(rep.Rejections) > 0 {
		msg := rep.Rejections[0].Reason
		if extra := len(rep.Rejections) - 1; extra > 0 {
			msg = fmt.Sprintf("%s (and %d more)", msg, extra)
		}
		vm.presentAlert(&AlertData{
			Title:   "Order rejected",
			Message: msg,
			Button:  AlertButton{Text: "OK"},
		})
	}
	return rep, nil
}

func (vm *MenuListViewModel) State() ViewState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

func (vm *MenuListViewModel) Menu() []models.MenuItem {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]models.MenuItem(nil), vm.menu...)
}

func (vm *MenuListViewModel) Alert() *AlertData {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.alert
}

// DismissAlert clears the current alert, mirroring the dismiss action of the
// presented payload.
func (vm *MenuListViewModel) DismissAlert() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed || vm.alert == nil {
		return
	}
	vm.alert = nil
	vm.notifyLocked()
}

func (vm *MenuListViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

// Subscribe delivers a snapshot after every change. The channel closes on
// Close or when the returned cancel func runs.
func (vm *MenuListViewModel) Subscribe() (<-chan Snapshot, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	ch := make(chan Snapshot, 8)
	if vm.closed {
		close(ch)
		return ch, func() {}
	}
	id := vm.nextObs
	vm.nextObs++
	vm.observers[id] = ch
	return ch, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if c, ok := vm.observers[id]; ok {
			delete(vm.observers, id)
			close(c)
		}
	}
}

func (vm *MenuListViewModel) setState(s ViewState) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed || vm.state == s {
		return
	}
	vm.state = s
	vm.notifyLocked()
}

func (vm *MenuListViewModel) presentAlert(a *AlertData) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.alert = a
	vm.notifyLocked()
}

func (vm *MenuListViewModel) snapshotLocked() Snapshot {
	return Snapshot{
		State: vm.state,
		Menu:  append([]models.MenuItem(nil), vm.menu...),
		Alert: vm.alert,
	}
}

// notifyLocked fans the current snapshot out without blocking; a stalled
// observer misses intermediate snapshots but can always call Snapshot().
func (vm *MenuListViewModel) notifyLocked() {
	snap := vm.snapshotLocked()
	for _, ch := range vm.observers {
		select {
		case ch <- snap:
		default:
		}
	}
}
