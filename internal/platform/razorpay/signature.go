package razorpay

import (
	"github.com/razorpay/razorpay-go/utils"
)

// VerifyPaymentSignature checks the checkout success signature for a
// subscription payment (HMAC-SHA256 over "payment_id|subscription_id").
func (c *Client) VerifyPaymentSignature(subscriptionID, paymentID, signature string) bool {
	return utils.VerifySubscriptionSignature(map[string]interface{}{
		"razorpay_subscription_id": subscriptionID,
		"razorpay_payment_id":      paymentID,
	}, signature, c.opts.KeySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw request body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" || c.opts.WebhookSecret == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, c.opts.WebhookSecret)
}
