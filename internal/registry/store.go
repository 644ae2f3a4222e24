package registry

import "context"

// Store persists the registry's singleton params and freeze state.
// Stream identity and the streams themselves live in internal/stream —
// the registry only tracks protocol-wide controls.
type Store interface {
	GetParams(ctx context.Context) (*Params, error)
	PutParams(ctx context.Context, p *Params) error
	GetFreezeState(ctx context.Context) (*FreezeState, error)
	PutFreezeState(ctx context.Context, f *FreezeState) error
}
