package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pickpoint/internal/models"
)

// FormatRupiah renders whole Rupiah with dot thousands separators: Rp12.500.
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 3)
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("Rp")

	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

var jakarta = time.FixedZone("WIB", 7*60*60)

func formatTime(t time.Time) string {
	return t.In(jakarta).Format("02/01/2006 15:04") + " WIB"
}

func arrivalMessage(pkg *models.Package, loc *models.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Paket Anda telah tiba*\n\n")
	fmt.Fprintf(&b, "Halo %s,\n", pkg.RecipientName)
	fmt.Fprintf(&b, "Paket dengan resi *%s* sudah diterima di %s", pkg.TrackingNumber, loc.Name)
	if pkg.UnitNumber != "" {
		fmt.Fprintf(&b, " untuk unit %s", pkg.UnitNumber)
	}
	fmt.Fprintf(&b, " pada %s.\n\n", formatTime(pkg.Dates.Arrived))
	fmt.Fprintf(&b, "Silakan ambil paket Anda. Ketik /paket untuk melihat biaya penyimpanan.")
	return b.String()
}

func pickupReceipt(pkgs []*models.Package, total int64, pickedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Paket sudah diambil*\n\n")
	for _, p := range pkgs {
		fmt.Fprintf(&b, "• %s: %s\n", p.TrackingNumber, FormatRupiah(p.FeePaid))
	}
	fmt.Fprintf(&b, "\nTotal biaya: %s\nWaktu: %s\nTerima kasih!", FormatRupiah(total), formatTime(pickedAt))
	return b.String()
}

func reminderMessage(pkg *models.Package, loc *models.Location, days, fee int64) string {
	return fmt.Sprintf("⏰ *Pengingat paket*\n\nPaket *%s* sudah %d hari tersimpan di %s.\nBiaya penyimpanan saat ini: %s.\nSegera ambil paket Anda agar biaya tidak bertambah.",
		pkg.TrackingNumber, days, loc.Name, FormatRupiah(fee))
}

func paymentLinkMessage(trackingNumber string, amount int64, url string, expiresAt time.Time) string {
	return fmt.Sprintf("💳 *Link pembayaran*\n\nResi: %s\nBiaya: %s\nBayar di: %s\nBerlaku sampai %s.",
		trackingNumber, FormatRupiah(amount), url, formatTime(expiresAt))
}
