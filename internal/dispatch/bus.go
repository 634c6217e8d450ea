package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	// ErrDuplicateHandler is returned when a second handler is registered
	// for a message type that already has one.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrUnregisteredType is returned when no handler is bound to the
	// concrete type of a sent command or asked query.
	ErrUnregisteredType = errors.New("no handler registered")

	// ErrResultType is returned when the caller's expected result type does
	// not match what the registered handler produces.
	ErrResultType = errors.New("handler result type mismatch")

	// ErrSealed is returned when registering on a sealed bus.
	ErrSealed = errors.New("bus is sealed")
)

// NoResult is the result type of commands that only report success or failure.
type NoResult struct{}

// CommandHandler executes a command of type C and returns a result of type R.
type CommandHandler[C any, R any] func(ctx context.Context, cmd C) (R, error)

// QueryHandler answers a query of type Q with a result of type R.
type QueryHandler[Q any, R any] func(ctx context.Context, q Q) (R, error)

type binding struct {
	result reflect.Type
	call   func(ctx context.Context, msg any) (any, error)
}

// Bus holds one registry for commands and one for queries.
type Bus struct {
	mu       sync.RWMutex
	sealed   bool
	commands map[reflect.Type]binding
	queries  map[reflect.Type]binding
}

// NewBus creates an empty, unsealed bus.
func NewBus() *Bus {
	return &Bus{
		commands: make(map[reflect.Type]binding),
		queries:  make(map[reflect.Type]binding),
	}
}

// RegisterCommand binds h to the command type C. A second registration for
// the same type fails with ErrDuplicateHandler and keeps the first binding.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterCommand[C any, R any](b *Bus, h CommandHandler[C, R]) error {
	return b.register(b.commands, "command", reflect.TypeFor[C](), reflect.TypeFor[R](),
		func(ctx context.Context, msg any) (any, error) {
			return h(ctx, msg.(C))
		})
}

// RegisterQuery binds h to the query type Q.
func RegisterQuery[Q any, R any](b *Bus, h QueryHandler[Q, R]) error {
	return b.register(b.queries, "query", reflect.TypeFor[Q](), reflect.TypeFor[R](),
		func(ctx context.Context, msg any) (any, error) {
			return h(ctx, msg.(Q))
		})
}

// MustRegisterCommand is RegisterCommand that panics on error, for startup wiring.
func MustRegisterCommand[C any, R any](b *Bus, h CommandHandler[C, R]) {
	if err := RegisterCommand(b, h); err != nil {
		panic(err)
	}
}

// MustRegisterQuery is RegisterQuery that panics on error, for startup wiring.
func MustRegisterQuery[Q any, R any](b *Bus, h QueryHandler[Q, R]) {
	if err := RegisterQuery(b, h); err != nil {
		panic(err)
	}
}

func (b *Bus) register(
	registry map[reflect.Type]binding,
	kind string,
	msgType, resultType reflect.Type,
	call func(ctx context.Context, msg any) (any, error),
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return fmt.Errorf("%w: cannot register %s %s", ErrSealed, kind, msgType)
	}
	if _, exists := registry[msgType]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateHandler, kind, msgType)
	}
	registry[msgType] = binding{result: resultType, call: call}
	return nil
}

// Seal freezes both registries. Later registrations fail with ErrSealed.
func (b *Bus) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// Send executes cmd with the handler bound to its concrete type.
func Send[R any](ctx context.Context, b *Bus, cmd any) (R, error) {
	return route[R](ctx, b, b.commands, "command", cmd)
}

// Ask answers q with the handler bound to its concrete type.
func Ask[R any](ctx context.Context, b *Bus, q any) (R, error) {
	return route[R](ctx, b, b.queries, "query", q)
}

func route[R any](
	ctx context.Context,
	b *Bus,
	registry map[reflect.Type]binding,
	kind string,
	msg any,
) (R, error) {
	var zero R

	msgType := reflect.TypeOf(msg)
	b.mu.RLock()
	bound, ok := registry[msgType]
	b.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s %v", ErrUnregisteredType, kind, msgType)
	}

	want := reflect.TypeFor[R]()
	if !bound.result.AssignableTo(want) {
		return zero, fmt.Errorf("%w: %s %v returns %v, caller expects %v",
			ErrResultType, kind, msgType, bound.result, want)
	}

	result, err := bound.call(ctx, msg)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(R), nil
}

// Commands returns the names of the registered command types, sorted.
func (b *Bus) Commands() []string {
	return b.names(b.commands)
}

// Queries returns the names of the registered query types, sorted.
func (b *Bus) Queries() []string {
	return b.names(b.queries)
}

func (b *Bus) names(registry map[reflect.Type]binding) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}
