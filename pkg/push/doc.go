// Package push is the top-level facade for sending push notifications.
//
// A Client wraps a provider with rate limiting, retries, lifecycle hooks,
// and an optional background delivery queue. The direct path (Send,
// SendBulk) blocks until the provider answers; the queued path
// (EnqueueSend) hands the notification to a worker pool and returns
// immediately.
//
// Minimal setup:
//
//	client, err := push.New(fcmClient)
//	if err != nil {
//		return err
//	}
//	res, err := client.Send(ctx, push.Notification{
//		Token: deviceToken,
//		Title: "Order shipped",
//	})
//
// Full setup with limiter, retries, and a queue:
//
//	limiter, _ := ratelimit.NewLimiter(rlCfg)
//	retrier, _ := retry.New(retryCfg)
//
//	client, err := push.New(fcmClient,
//		push.WithLimiter(limiter),
//		push.WithRetrier(retrier),
//		push.WithQueue(queue.NewMemoryStorage(), queueCfg),
//		push.WithHooks(push.Hooks{
//			OnSendFailure: func(n push.Notification, err error) {
//				metrics.Inc("push_failures")
//			},
//		}),
//	)
package push
