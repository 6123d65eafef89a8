package billinghttp

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var overviewGroup singleflight.Group

// singleflightOverview collapses concurrent identical overview builds so
// a burst of requests for the same billing month loads the period once.
func singleflightOverview(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := overviewGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
