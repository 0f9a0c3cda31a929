package api

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// FormOptions holds the selectable values for a document form.
type FormOptions struct {
	Customers  []billing.Customer
	Milestones []billing.Milestone
}

// LoadFormOptions fetches active customers and, when projectID is set, the
// project milestones in parallel.
func (c *Client) LoadFormOptions(ctx context.Context, projectID int64) (FormOptions, error) {
	var opts FormOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := c.ListCustomers(gctx, "")
		if err != nil {
			return err
		}
		opts.Customers = billing.ActiveCustomers(all)
		return nil
	})
	if projectID > 0 {
		g.Go(func() error {
			ms, err := c.Milestones(gctx, projectID)
			if err != nil {
				return err
			}
			opts.Milestones = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FormOptions{}, err
	}
	return opts, nil
}
