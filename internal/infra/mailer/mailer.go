package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
)

type attachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type message struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// Mailer はHTTPメールAPIで送信する。API_URL未設定ならログに出すだけ。
type Mailer struct {
	cfg        config.Mail
	adminEmail string
	http       *http.Client
	log        *slog.Logger
}

func New(cfg config.Mail, adminEmail string, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		cfg:        cfg,
		adminEmail: adminEmail,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem, pdf []byte) error {
	html, err := render(orderConfirmationTmpl, map[string]any{"Order": order, "Invoice": inv, "Items": items})
	if err != nil {
		return err
	}
	msg := message{
		To:      []string{order.ShippingAddress.Email},
		Subject: fmt.Sprintf("Order #%d confirmed - %s", order.ID, inv.InvoiceNumber),
		HTML:    html,
	}
	if len(pdf) > 0 {
		msg.Attachments = []attachment{{
			Filename:    inv.InvoiceNumber + ".pdf",
			Content:     base64.StdEncoding.EncodeToString(pdf),
			ContentType: "application/pdf",
		}}
	}
	return m.send(ctx, msg)
}

func (m *Mailer) SendAdminOrderNotification(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem) error {
	if m.adminEmail == "" {
		return nil
	}
	html, err := render(adminOrderTmpl, map[string]any{"Order": order, "Invoice": inv, "Items": items})
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		To:      []string{m.adminEmail},
		Subject: fmt.Sprintf("[badgeshop] New order #%d (%s)", order.ID, formatINR(order.Amount)),
		HTML:    html,
	})
}

func (m *Mailer) SendPromoUsage(ctx context.Context, influencer model.User, promo model.PromoCode, order model.Order, units int64, earning int64) error {
	html, err := render(promoUsageTmpl, map[string]any{
		"Influencer": influencer, "Promo": promo, "Order": order, "Units": units, "Earning": earning,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		To:      []string{influencer.Email},
		Subject: "Your code " + promo.Code + " was used",
		HTML:    html,
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user model.User, resetURL string) error {
	html, err := render(passwordResetTmpl, map[string]any{"User": user, "URL": resetURL})
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		To:      []string{user.Email},
		Subject: "Reset your badgeshop password",
		HTML:    html,
	})
}

func (m *Mailer) SendWithdrawalPaid(ctx context.Context, influencer model.User, w model.WithdrawalRequest) error {
	html, err := render(withdrawalPaidTmpl, map[string]any{"Influencer": influencer, "Withdrawal": w})
	if err != nil {
		return err
	}
	return m.send(ctx, message{
		To:      []string{influencer.Email},
		Subject: fmt.Sprintf("Withdrawal #%d paid", w.ID),
		HTML:    html,
	})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, msg message) error {
	msg.From = m.cfg.From
	if m.cfg.APIURL == "" {
		m.log.InfoContext(ctx, "mail not sent (MAIL_API_URL unset)", slog.Any("to", msg.To), slog.String("subject", msg.Subject))
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("mail api returned status %d", resp.StatusCode)
	}
	m.log.InfoContext(ctx, "mail sent", slog.Any("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// ₹1,234 形式（3桁区切り）
func formatINR(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-₹" + string(out)
	}
	return "₹" + string(out)
}
