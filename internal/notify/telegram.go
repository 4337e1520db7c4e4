package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/GoPolymarket/paper-engine/internal/performance"
)

// ErrThrottled is returned when a block alert is dropped by the rate limiter.
var ErrThrottled = errors.New("notify: alert throttled")

// Notifier sends alerts to a Telegram chat via the Bot API. Sends go through
// a circuit breaker so a dead Telegram endpoint does not stall the session,
// and block alerts are rate limited.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API

	breaker *cb.CircuitBreaker
	blocks  *rate.Limiter
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty. blockEvery is the minimum spacing between
// block alerts; zero uses one minute.
func NewNotifier(botToken, chatID string, blockEvery time.Duration) *Notifier {
	if blockEvery <= 0 {
		blockEvery = time.Minute
	}
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
		breaker:    newBreaker("telegram"),
		blocks:     rate.NewLimiter(rate.Every(blockEvery), 1),
	}
}

func newBreaker(name string) *cb.CircuitBreaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return cb.NewCircuitBreaker(st)
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.post(ctx, msg)
	})
	return err
}

func (n *Notifier) post(ctx context.Context, msg string) error {
	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifySettlement sends a realized trade summary.
func (n *Notifier) NotifySettlement(ctx context.Context, t performance.Trade) error {
	outcome := "WIN"
	if !t.IsWin {
		outcome = "LOSS"
	}
	msg := fmt.Sprintf(
		"<b>Trade %s</b>\nEngine: %s @ %s\nSymbol: <code>%s</code> %s\nEntry: %.4f\nSize: %.2f\nPnL: %.2f",
		outcome, t.Engine, t.Venue, t.Symbol, t.Direction, t.EntryPrice, t.PositionSize, t.PnL,
	)
	return n.Send(ctx, msg)
}

// NotifyBlock sends a blocked-decision alert, at most once per configured
// interval. Dropped alerts return ErrThrottled.
func (n *Notifier) NotifyBlock(ctx context.Context, reason, level string) error {
	if !n.enabled {
		return nil
	}
	if !n.blocks.Allow() {
		return ErrThrottled
	}
	msg := fmt.Sprintf("<b>Trading Blocked</b>\nLevel: %s\nReason: %s", level, reason)
	return n.Send(ctx, msg)
}

// NotifyCircuitBreaker sends an alert when an engine hits its losing-streak
// hard stop.
func (n *Notifier) NotifyCircuitBreaker(ctx context.Context, engine string, streak int) error {
	msg := fmt.Sprintf("<b>Circuit Breaker</b>\nEngine: %s\nLosing streak: %d\nEngine halted until its next win.", engine, streak)
	return n.Send(ctx, msg)
}

// NotifyManualLock sends an alert when the operator kill switch changes.
func (n *Notifier) NotifyManualLock(ctx context.Context, locked bool) error {
	if locked {
		return n.Send(ctx, "<b>MANUAL LOCK</b>\nAll trading halted by operator.")
	}
	return n.Send(ctx, "<b>Manual lock released</b>\nTrading may resume.")
}

// NotifyDailySummary sends a daily performance summary.
func (n *Notifier) NotifyDailySummary(ctx context.Context, dailyPnL, balance float64, trades int, winRate float64) error {
	msg := fmt.Sprintf(
		"<b>Daily Summary</b>\nPnL: %.2f\nBalance: %.2f\nTrades: %d\nWin rate: %.1f%%",
		dailyPnL, balance, trades, winRate*100,
	)
	return n.Send(ctx, msg)
}
