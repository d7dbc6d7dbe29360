// Package chaos applies the artificial latency and probabilistic failure a
// response variant declares.
//
// Failure draws come from an injected Source so tests can substitute a fixed
// sequence:
//
//	out := chaos.Apply(&variant, chaos.Sequence(0.99))
//	if out.Failed {
//	    // respond with FailureStatus and FailureBody()
//	}
//	if err := chaos.Sleep(ctx, out.Delay); err != nil {
//	    return // client went away, write nothing
//	}
//
// The default factory hands out an independent generator per evaluation, so
// concurrent requests never share random state.
package chaos
