package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
	"pickpoint/pkg/whatsapp"
)

const HeaderWebhookSecret = "X-Webhook-Secret"

// WhatsAppHandler answers recipients chatting with the locker's number.
type WhatsAppHandler struct {
	notifications      services.NotificationService
	packageService     services.PackageService
	customerService    services.CustomerService
	paymentLinkService services.PaymentLinkService
	webhookSecret      string
	clock              clock.Clock
	logger             *logging.Logger
}

func NewWhatsAppHandler(
	notifications services.NotificationService,
	packageService services.PackageService,
	customerService services.CustomerService,
	paymentLinkService services.PaymentLinkService,
	webhookSecret string,
	clk clock.Clock,
	logger *logging.Logger,
) *WhatsAppHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &WhatsAppHandler{
		notifications:      notifications,
		packageService:     packageService,
		customerService:    customerService,
		paymentLinkService: paymentLinkService,
		webhookSecret:      webhookSecret,
		clock:              clk,
		logger:             logger.WithComponent("whatsapp-webhook"),
	}
}

func (h *WhatsAppHandler) HandleWebhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(HeaderWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			respondError(c, h.logger, apperrors.Unauthorized("invalid webhook secret"))
			return
		}
	}

	var req whatsapp.WebhookMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	phone := req.Sender()
	if phone == "" {
		respondError(c, h.logger, apperrors.Validation("sender is required"))
		return
	}

	response := h.processCommand(c.Request.Context(), phone, req.Message.Text)
	if response == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.notifications.Send(c.Request.Context(), "reply", phone, response); err != nil {
		h.logger.WithError(err).Warn("Failed to send webhook reply", "phone", phone)
		c.JSON(http.StatusOK, gin.H{"status": "reply_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// processCommand returns the reply for message, or "" for chatter that is not
// a command.
func (h *WhatsAppHandler) processCommand(ctx context.Context, phone, message string) string {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, "/") {
		return ""
	}

	parts := strings.Fields(message)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/paket":
		return h.listPackages(ctx, phone)
	case "/bayar":
		return h.paymentLink(ctx, phone, args)
	case "/member":
		return h.membershipStatus(ctx, phone)
	case "/help":
		return helpMessage()
	default:
		return "❌ Perintah tidak dikenal. Ketik /help untuk daftar perintah."
	}
}

func (h *WhatsAppHandler) listPackages(ctx context.Context, phone string) string {
	views, err := h.packageService.List(ctx, repository.PackageFilter{
		RecipientPhone: phone,
		Status:         models.StatusArrived,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list packages for chat", "phone", phone)
		return "❌ Gagal mengambil data paket. Silakan coba lagi."
	}
	if len(views) == 0 {
		return "📭 Tidak ada paket yang menunggu diambil."
	}

	var b strings.Builder
	b.WriteString("📦 *Paket Anda:*\n\n")
	var total int64
	for _, v := range views {
		fmt.Fprintf(&b, "• %s (tiba %s)\n", v.TrackingNumber, v.Dates.Arrived.In(wib).Format("02/01 15:04"))
		switch {
		case v.FeeError != "":
			b.WriteString("  Biaya: hubungi petugas\n")
		case v.FeePaid > 0:
			fmt.Fprintf(&b, "  Sudah dibayar: %s\n", services.FormatRupiah(v.FeePaid))
		default:
			fmt.Fprintf(&b, "  Biaya saat ini: %s\n", services.FormatRupiah(v.CurrentFee))
			total += v.CurrentFee
		}
	}
	fmt.Fprintf(&b, "\nTotal belum dibayar: %s", services.FormatRupiah(total))
	if total > 0 {
		b.WriteString("\nKetik /bayar <resi> untuk membayar online.")
	}
	return b.String()
}

func (h *WhatsAppHandler) paymentLink(ctx context.Context, phone string, args []string) string {
	if len(args) < 1 {
		return "❌ Format: /bayar <nomor resi>"
	}

	link, err := h.paymentLinkService.CreateForTracking(ctx, args[0], phone)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeNotFound:
			return "❌ Paket dengan resi tersebut tidak ditemukan."
		case apperrors.CodeAlreadyPaid:
			return "✅ Biaya paket ini sudah dibayar."
		case apperrors.CodeAlreadyFinalized:
			return "ℹ️ Paket ini sudah diambil."
		case apperrors.CodeValidationError:
			return "✅ Belum ada biaya penyimpanan untuk paket ini."
		}
		h.logger.WithError(err).Error("Failed to create payment link from chat", "phone", phone)
		return "❌ Gagal membuat link pembayaran. Silakan coba lagi."
	}

	return fmt.Sprintf("💳 *Link pembayaran*\n\nResi: %s\nBiaya: %s\nBayar di: %s\nBerlaku sampai %s WIB.",
		link.TrackingNumber, services.FormatRupiah(link.Amount), link.URL, link.ExpiresAt.In(wib).Format("02/01/2006 15:04"))
}

func (h *WhatsAppHandler) membershipStatus(ctx context.Context, phone string) string {
	customer, err := h.customerService.Get(ctx, phone)
	if err != nil && apperrors.CodeOf(err) != apperrors.CodeNotFound {
		h.logger.WithError(err).Error("Failed to load customer for chat", "phone", phone)
		return "❌ Gagal mengambil data member. Silakan coba lagi."
	}

	now := h.clock.Now()
	if customer == nil || !customer.IsActiveMember(now) {
		return "ℹ️ Anda belum menjadi member aktif. Member tidak dikenakan biaya penyimpanan paket."
	}
	return fmt.Sprintf("⭐ Anda member aktif sampai %s WIB.", customer.MembershipExpiry.In(wib).Format("02/01/2006 15:04"))
}

func helpMessage() string {
	return `📱 *Perintah yang tersedia:*

/paket - Lihat paket yang menunggu diambil beserta biayanya
/bayar <resi> - Minta link pembayaran biaya penyimpanan
/member - Cek status member
/help - Tampilkan pesan ini`
}
