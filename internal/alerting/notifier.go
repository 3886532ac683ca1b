package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

// Notification 封装一次抓取周期的摘要。
type Notification struct {
	SnapshotID    string
	CapturedAt    time.Time
	TotalEvents   int
	TotalMarkets  int
	TotalVolume   decimal.Decimal
	FetchDuration time.Duration
	TopEvents     []model.Event
	AdditionalMsg string
}

// NewNotification builds a digest carrying the top events by 24h volume.
func NewNotification(snap model.Snapshot, topN int) Notification {
	top := make([]model.Event, len(snap.Events))
	copy(top, snap.Events)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Volume24hr > top[j].Volume24hr })
	if topN >= 0 && len(top) > topN {
		top = top[:topN]
	}

	return Notification{
		SnapshotID:    snap.ID,
		CapturedAt:    snap.Timestamp,
		TotalEvents:   snap.TotalEvents,
		TotalMarkets:  snap.TotalMarkets,
		TotalVolume:   decimal.NewFromFloat(snap.TotalVolume),
		FetchDuration: snap.FetchDuration,
		TopEvents:     top,
	}
}

// Notifier 定义通知输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 通知器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("snapshot_id", note.SnapshotID).
		Int("events", note.TotalEvents).
		Msg("摘要已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Polymarket Snapshot]\n")
	builder.WriteString(fmt.Sprintf("Captured: %s UTC\n", note.CapturedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Events: %d | Markets: %d\n", note.TotalEvents, note.TotalMarkets))
	builder.WriteString(fmt.Sprintf("Total volume: $%s\n", note.TotalVolume.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Fetch: %.1fs\n", note.FetchDuration.Seconds()))
	if len(note.TopEvents) > 0 {
		builder.WriteString("Top by 24h volume:\n")
		for i, e := range note.TopEvents {
			builder.WriteString(fmt.Sprintf("%d. %s [%s] $%s\n", i+1, e.Title, e.Category,
				decimal.NewFromFloat(e.Volume24hr).StringFixed(0)))
		}
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
