package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-resources/auth"
	rescommand "github.com/goliatone/go-resources/command"
	"github.com/goliatone/go-resources/core"
	"github.com/goliatone/go-resources/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// Dispatch validates msg before handing it to the dispatcher, so invalid
// requests never reach a handler.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

// DispatchResult runs a command and returns the value it stored in the
// result collector.
func DispatchResult[T any, R any](ctx context.Context, msg T) (R, error) {
	var zero R
	collector := command.NewResult[R]()
	if err := Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	out, ok := collector.Load()
	if !ok {
		return zero, core.InternalError(fmt.Sprintf("gocommand: %T stored no result", msg))
	}
	return out, nil
}

// Wiring holds the dispatcher subscriptions of one resources instance so they
// can be released together.
type Wiring struct {
	adapter    *RegistryAdapter
	runnerOpts []runner.Option

	mu   sync.Mutex
	subs []commanddispatcher.Subscription
}

func NewWiring(adapter *RegistryAdapter, runnerOpts ...runner.Option) *Wiring {
	if adapter == nil {
		adapter = NewRegistryAdapter(nil)
	}
	return &Wiring{adapter: adapter, runnerOpts: runnerOpts}
}

func (w *Wiring) Adapter() *RegistryAdapter {
	if w == nil {
		return nil
	}
	return w.adapter
}

func (w *Wiring) track(sub commanddispatcher.Subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, sub)
}

// Close unsubscribes every handler added through w.
func (w *Wiring) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()
	for _, sub := range subs {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

func AddCommand[T any](w *Wiring, cmd command.Commander[T]) error {
	if w == nil || w.adapter == nil {
		return fmt.Errorf("gocommand: wiring is not configured")
	}
	if cmd == nil {
		return fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, w.runnerOpts...)
	if err := w.adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	w.track(subscription)
	return nil
}

func AddQuery[T any, R any](w *Wiring, qry command.Querier[T, R]) error {
	if w == nil || w.adapter == nil {
		return fmt.Errorf("gocommand: wiring is not configured")
	}
	if qry == nil {
		return fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, w.runnerOpts...)
	if err := w.adapter.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	w.track(subscription)
	return nil
}

// RegisterAuth subscribes the auth workflow commands and the authenticate
// query.
func RegisterAuth(w *Wiring, workflow *auth.Workflow) error {
	if workflow == nil {
		return fmt.Errorf("gocommand: auth workflow is required")
	}
	if err := AddCommand[rescommand.SignUpMessage](w, rescommand.NewSignUpCommand(workflow)); err != nil {
		return err
	}
	if err := AddCommand[rescommand.SignInMessage](w, rescommand.NewSignInCommand(workflow)); err != nil {
		return err
	}
	if err := AddCommand[rescommand.ChangePasswordMessage](w, rescommand.NewChangePasswordCommand(workflow)); err != nil {
		return err
	}
	if err := AddCommand[rescommand.RefreshMessage](w, rescommand.NewRefreshCommand(workflow)); err != nil {
		return err
	}
	if err := AddCommand[rescommand.SignOutMessage](w, rescommand.NewSignOutCommand(workflow)); err != nil {
		return err
	}
	return AddQuery[query.AuthenticateMessage, core.ClaimSet](w, query.NewAuthenticateQuery(workflow))
}

// RegisterInvitations subscribes the administrative invitation handlers and
// their link discovery under policy, auth.InvitationLinks when zero. The
// dispatcher routes by message type, so the generic read, list and discovery
// messages belong to invitations on this bus.
func RegisterInvitations(w *Wiring, service *auth.InvitationService, policy core.LinkPolicy) error {
	if service == nil {
		return fmt.Errorf("gocommand: invitation service is required")
	}
	if policy.Namespace == "" {
		policy = auth.InvitationLinks()
	}
	if err := AddCommand[rescommand.CreateInvitationMessage](w, rescommand.NewCreateInvitationCommand(service, policy)); err != nil {
		return err
	}
	if err := AddCommand[rescommand.DeleteInvitationMessage](w, rescommand.NewDeleteInvitationCommand(service, policy)); err != nil {
		return err
	}
	if err := AddQuery[query.ReadResourceMessage, auth.Invitation](w, query.NewReadQuery[auth.Invitation](service, policy)); err != nil {
		return err
	}
	if err := AddQuery[query.ListResourcesMessage, []auth.Invitation](w, query.NewListQuery[auth.Invitation](service, policy)); err != nil {
		return err
	}
	return AddQuery[query.DiscoverLinksMessage, []core.ClaimLink](w, query.NewDiscoverLinksQuery(policy))
}
