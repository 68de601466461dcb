// Package provider defines the contract between push-delivery orchestration
// and concrete push services.
//
// A Provider sends notifications to devices or topics and reports results in
// a provider-agnostic shape. Failures are surfaced as *Error values carrying
// a stable machine-readable code and a retryability flag, so callers can
// classify transient conditions without knowing which backend produced them.
//
// The Registry maps provider identifiers to factories and caches resolved
// instances. It is a plain constructed object, not package-level state, so
// applications can hold several independent registries.
//
// Basic usage:
//
//	reg := provider.NewRegistry()
//	reg.Register("dev", func(ctx context.Context) (provider.Provider, error) {
//		return provider.NewDevProvider(), nil
//	})
//
//	p, err := reg.Resolve(ctx, "dev")
//	if err != nil {
//		return err
//	}
//
//	n := provider.Notification{Token: deviceToken}.
//		WithTitle("Order shipped").
//		WithBody("Your package is on the way")
//
//	res, err := p.Send(ctx, n)
package provider
