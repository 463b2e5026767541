package remote

import (
	"context"
	"sync"

	"coffee-kiosk/internal/models"
)

// Fake is an in-memory API for tests and local previews. Responses can be
// scripted per order ID or via a default; every submission attempt is
// recorded in order.
type Fake struct {
	mu         sync.Mutex
	menu       []models.MenuItem
	menuErr    error
	scripted   map[string]error
	defaultErr error
	attempts   []string
	accepted   []string

	// CreateHook, when set, runs before each CreateOrder is classified.
	// Tests use it to synchronize with or stall an in-flight submission.
	CreateHook func(models.Order)
}

func NewFake() *Fake {
	return &Fake{scripted: make(map[string]error)}
}

func (f *Fake) SetMenu(menu []models.MenuItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menu = menu
}

func (f *Fake) SetMenuError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menuErr = err
}

// SetDefault sets the response for any order without a scripted one.
// nil means accept.
func (f *Fake) SetDefault(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultErr = err
}

func (f *Fake) Script(orderID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripted[orderID] = err
}

func (f *Fake) CreateOrder(_ context.Context, order models.Order) error {
	f.mu.Lock()
	hook := f.CreateHook
	f.mu.Unlock()
	if hook != nil {
		hook(order)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, order.ID)
	err, ok := f.scripted[order.ID]
	if !ok {
		err = f.defaultErr
	}
	if err == nil {
		f.accepted = append(f.accepted, order.ID)
	}
	return err
}

func (f *Fake) GetMenu(_ context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.menuErr != nil {
		return nil, f.menuErr
	}
	return append([]models.MenuItem(nil), f.menu...), nil
}

// Attempts returns every order ID submitted, in submission order.
func (f *Fake) Attempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attempts...)
}

// Accepted returns the order IDs the fake accepted, in acceptance order.
func (f *Fake) Accepted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.accepted...)
}
