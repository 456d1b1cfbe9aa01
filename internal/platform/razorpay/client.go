package razorpay

import (
	"context"
	"fmt"

	cfgpkg "github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/types"

	razorpaysdk "github.com/razorpay/razorpay-go"
)

// ClientOptions carries the provider credentials.
type ClientOptions struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Client is a thin wrapper over the Razorpay SDK scoped to the subscription
// operations this service performs.
type Client struct {
	sdk  *razorpaysdk.Client
	opts *ClientOptions
}

func NewClient(cfg *cfgpkg.Config) (*Client, error) {
	opts := &ClientOptions{
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
	}
	if opts.KeyID == "" || opts.KeySecret == "" {
		return nil, fmt.Errorf("razorpay credentials are not configured")
	}
	return &Client{sdk: razorpaysdk.NewClient(opts.KeyID, opts.KeySecret), opts: opts}, nil
}

// CreateSubscriptionParams mirrors what the checkout flow needs.
type CreateSubscriptionParams struct {
	Plan          *types.Plan
	UserID        string
	CustomerEmail string
	CustomerName  string
}

// CreateSubscription creates a provider-side subscription billed monthly for
// twelve cycles. Notes carry user_id/plan_id so webhooks can be attributed.
func (c *Client) CreateSubscription(ctx context.Context, p *CreateSubscriptionParams) (map[string]interface{}, error) {
	if p == nil || p.Plan == nil {
		return nil, fmt.Errorf("missing plan")
	}
	if p.Plan.RazorpayPlanID == "" {
		return nil, fmt.Errorf("plan %s has no razorpay plan id", p.Plan.ID)
	}

	data := map[string]interface{}{
		"plan_id":         p.Plan.RazorpayPlanID,
		"customer_notify": 1,
		"quantity":        1,
		"total_count":     12,
		"notes": map[string]interface{}{
			"user_id":        p.UserID,
			"plan_id":        string(p.Plan.ID),
			"customer_email": p.CustomerEmail,
			"customer_name":  p.CustomerName,
		},
	}

	sub, err := c.sdk.Subscription.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay subscription: %w", err)
	}
	return sub, nil
}

// CancelSubscription cancels at the provider. cancelAtCycleEnd lets the
// current period run out instead of cutting access immediately.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string, cancelAtCycleEnd bool) (map[string]interface{}, error) {
	data := map[string]interface{}{
		"cancel_at_cycle_end": boolToInt(cancelAtCycleEnd),
	}
	res, err := c.sdk.Subscription.Cancel(subscriptionID, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel razorpay subscription %s: %w", subscriptionID, err)
	}
	return res, nil
}

func (c *Client) PauseSubscription(ctx context.Context, subscriptionID string) (map[string]interface{}, error) {
	res, err := c.sdk.Subscription.Pause(subscriptionID, map[string]interface{}{"pause_at": "now"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to pause razorpay subscription %s: %w", subscriptionID, err)
	}
	return res, nil
}

func (c *Client) ResumeSubscription(ctx context.Context, subscriptionID string) (map[string]interface{}, error) {
	res, err := c.sdk.Subscription.Resume(subscriptionID, map[string]interface{}{"resume_at": "now"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resume razorpay subscription %s: %w", subscriptionID, err)
	}
	return res, nil
}

func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (map[string]interface{}, error) {
	res, err := c.sdk.Subscription.Fetch(subscriptionID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch razorpay subscription %s: %w", subscriptionID, err)
	}
	return res, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
