package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecowatcher/backend/internal/logger"
)

// Notifier announces events that need an administrator's attention.
type Notifier interface {
	NotifyNewPickup(p PickupNotification) error
	NotifyExchangeRequest(x ExchangeNotification) error
}

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	log         *logrus.Entry
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         logger.WithComponent("telegram"),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		s.log.Debug("admin chat id not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// PickupNotification contains pickup data for Telegram notification.
type PickupNotification struct {
	PickupID    string
	QueueNumber int
	UserName    string
	Address     string
	PickUpDate  time.Time
	PickUpTime  string
	Items       []PickupItemNotification
}

// PickupItemNotification contains pickup item data.
type PickupItemNotification struct {
	Name     string
	Quantity int
	Points   int
}

// ExchangeNotification contains voucher exchange data.
type ExchangeNotification struct {
	TransactionID string
	UserName      string
	Nominal       int64
	PointUsed     int
	BankName      string
}

// FormatAmount formats an amount with thousand separators and a unit.
func FormatAmount(amount int64, unit string) string {
	str := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")

	var result strings.Builder
	if neg {
		result.WriteByte('-')
	}
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(".")
		}
		result.WriteRune(digit)
	}

	if unit == "" {
		return result.String()
	}
	return result.String() + " " + unit
}

// NotifyNewPickup sends notification about a new pickup to admin chat.
func (s *TelegramService) NotifyNewPickup(p PickupNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	var itemsList strings.Builder
	for i, item := range p.Items {
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b> x%d (%s)\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			FormatAmount(int64(item.Points), "poin"),
		))
	}

	message := fmt.Sprintf(`<b>♻️ PENYETORAN BARU</b>
<b>🔢 Antrian:</b> %d
<b>👤 Penyumbang:</b> %s
<b>📍 Alamat:</b> %s
<b>📅 Jadwal:</b> %s %s
<b>📦 Sampah:</b>
%s━━━━━━━━━━━━━━━━━━`,
		p.QueueNumber,
		html.EscapeString(p.UserName),
		html.EscapeString(p.Address),
		p.PickUpDate.Format("02-01-2006"),
		html.EscapeString(p.PickUpTime),
		itemsList.String(),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyExchangeRequest sends notification about a new voucher exchange.
func (s *TelegramService) NotifyExchangeRequest(x ExchangeNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>💸 PENUKARAN POIN</b>
<b>👤 Penyumbang:</b> %s
<b>💰 Nominal:</b> %s
<b>⭐ Poin:</b> %s
<b>🏦 Bank:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(x.UserName),
		FormatAmount(x.Nominal, "IDR"),
		FormatAmount(int64(x.PointUsed), "poin"),
		html.EscapeString(x.BankName),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
