package bot

import (
	"fmt"
	"strings"
	"time"

	"gw-ipn-relay/internal/models"

	"github.com/shopspring/decimal"
)

const (
	welcomeText = "Welcome! You are now registered to receive payment notifications. Use /help to see available commands."

	helpText = `Available commands:

/start - Register to receive notifications
/balance - Check global balance
/transactions - View transaction history
/cashout - Cash out balance
/menu - Show interactive menu
/status - View system status
/cancel - Cancel the current prompt

IPN Forwarding (admin only):
/forward <url> - Add URL to forward IPN to
/remove-forward <url or number> - Remove forwarding URL
/list-forward - List all forwarding URLs
/forward-menu - Manage forwarding URLs via menu

Admin commands:
/setfee <percentage> - Set cash out fee
/notify <user_id> - Add user to notifications
/unnotify <user_id> - Remove user from notifications
/notificationlist - View notification list
/token - Get a reporting API token`

	mainMenuText    = "📱 Main Menu\n\nSelect an option:"
	unavailableText = "Service temporarily unavailable, please try again later."

	startFirstText         = "Please use /start first."
	noBalanceText          = "No balance available to cash out."
	cashOutAdminOnlyText   = "Only admin can cash out."
	notForYouText          = "This action is not for you."
	enterAmountText        = "Please enter the amount to cash out (in USD):"
	insufficientAnswerText = "Insufficient balance."
	invalidAmountText      = "Invalid amount. Please enter a positive number."

	setFeeDeniedText = "Only admin can set cash out fee."
	invalidFeeText   = "Invalid fee. Please provide a percentage between 0 and 100."

	notifyDeniedText           = "Only admin can add users to notification list."
	unnotifyDeniedText         = "Only admin can remove users from notification list."
	notificationListDeniedText = "Only admin can view notification list."
	invalidUserIDText          = "Invalid user id. Please provide a numeric chat id."

	forwardAddDeniedText    = "Only admin can add forwarding URLs."
	forwardRemoveDeniedText = "Only admin can remove forwarding URLs."
	forwardListDeniedText   = "Only admin can view forwarding list."
	forwardClearDeniedText  = "Only admin can clear forwarding URLs."
	forwardMenuDeniedText   = "Only admin can access forward menu."
	noForwardsText          = "No forwarding URLs configured."
	invalidURLText          = "Invalid URL. Please provide a valid URL including http:// or https://"
	enterForwardURLText     = "Please enter the URL to forward IPN to:\n(e.g., https://example.com/ipn)"
	forwardNotFoundText     = "❌ URL not found. Please check the number or URL and try again."

	nothingToCancelText = "Nothing to cancel."
	cancelledText       = "Cancelled."
	tokenDeniedText     = "Only admin can request an API token."
	apiDisabledText     = "Reporting API is disabled."
)

func usd(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		{{Text: "💰 Balance", Data: "menu_balance"}, {Text: "📊 Transactions", Data: "menu_transactions"}},
		{{Text: "💸 Cash Out", Data: "menu_cashout"}, {Text: "📋 Status", Data: "menu_status"}},
		{{Text: "👥 Notification List", Data: "menu_notifications"}},
	}
}

func cashOutKeyboard(chatID string) [][]Button {
	return [][]Button{
		{
			{Text: "Cash Out All", Data: "cashout_all_" + chatID},
			{Text: "Cash Out Half", Data: "cashout_half_" + chatID},
		},
		{{Text: "Custom Amount", Data: "cashout_custom_" + chatID}},
	}
}

func forwardMenuKeyboard() [][]Button {
	return [][]Button{
		{{Text: "➕ Add Forward URL", Data: "forward_add"}, {Text: "➖ Remove Forward URL", Data: "forward_remove"}},
		{{Text: "📋 List Forward URLs", Data: "forward_list"}, {Text: "🗑️ Clear All", Data: "forward_clear"}},
		{{Text: "🔄 Refresh", Data: "forward_menu"}},
	}
}

// formatBalance own выводится, только если участник уже выводил средства.
func formatBalance(b *models.BalanceSummary, own decimal.Decimal) string {
	text := fmt.Sprintf("💰 Balance Summary:\n\nTotal Received: %s USD\nTotal Cashed Out: %s USD\nRemaining: %s USD",
		usd(b.TotalReceived), usd(b.TotalCashedOut), usd(b.Remaining))
	if own.IsPositive() {
		text += fmt.Sprintf("\nYou Cashed Out: %s USD", usd(own))
	}
	return text
}

func formatTransactions(txs []models.Transaction) string {
	if len(txs) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("📊 Transaction History:\n\n")
	for i, tx := range txs {
		date := tx.PaymentDate
		if date == "" {
			date = tx.RecordedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&sb, "%d. %s %s (%s USD)\n   %s\n   ID: %s\n\n",
			i+1, usd(tx.GrossAmount), strings.ToUpper(tx.Currency), usd(tx.AmountUSD), date, tx.TxnID)
	}
	return sb.String()
}

func formatStatus(st *models.SystemStatus) string {
	var sb strings.Builder
	sb.WriteString("📊 System Status\n\n")
	fmt.Fprintf(&sb, "Total Transactions: %d\n", st.TransactionCount)
	fmt.Fprintf(&sb, "Total Received: %s USD\n", usd(st.TotalReceived))
	fmt.Fprintf(&sb, "Registered Users: %d\n", st.RegisteredUsers)
	fmt.Fprintf(&sb, "Notification Users: %d\n", st.NotificationUsers)
	fmt.Fprintf(&sb, "Forwarding URLs: %d\n", st.ForwardURLs)
	fmt.Fprintf(&sb, "Cash Out Fee: %s%%\n", st.FeePercent.String())
	return sb.String()
}

func formatCashOutMenu(q *models.CashOutQuote) string {
	return fmt.Sprintf("💸 Cash Out Options\n\nAvailable Balance: %s USD\nCash Out Fee: %s%%\n\nSelect an option:",
		usd(q.Remaining), q.FeePercent.String())
}

func formatCashOutResult(r *models.CashOutResult) string {
	return fmt.Sprintf("💸 Cash Out Successful\n\nAmount: %s USD\nFee (%s%%): %s USD\nNet: %s USD\n\nRemaining Balance: %s USD",
		usd(r.Amount), r.FeePercent.String(), usd(r.Fee), usd(r.Net), usd(r.RemainingAfter))
}

func formatInsufficient(remaining decimal.Decimal) string {
	return fmt.Sprintf("Insufficient balance. Available: %s USD", usd(remaining))
}

func formatNotificationList(list []string) string {
	if len(list) == 0 {
		return "No users in notification list."
	}

	var sb strings.Builder
	sb.WriteString("📋 Notification List:\n\n")
	for _, id := range list {
		sb.WriteString("- " + id + "\n")
	}
	return sb.String()
}

func numbered(list []string) string {
	var sb strings.Builder
	for i, item := range list {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return sb.String()
}

func formatForwardMenu(list []string) string {
	body := noForwardsText
	if len(list) > 0 {
		body = "Configured forwarding URLs:\n\n" + numbered(list)
	}
	return "📤 IPN Forward Management\n\n" + body + "\nSelect an option:"
}

func formatForwardAdded(url string, total int) string {
	return fmt.Sprintf("✅ URL added to forwarding list:\n%s\n\nTotal forwarding URLs: %d", url, total)
}

func formatForwardRemoved(remaining int) string {
	return fmt.Sprintf("✅ URL removed from forwarding list.\n\nRemaining forwarding URLs: %d", remaining)
}

func formatCleared(count int) string {
	return fmt.Sprintf("Cleared %d forwarding URL(s).", count)
}

func formatToken(t *models.TokenResponse) string {
	return fmt.Sprintf("🔑 Reporting API token (valid for %d s):\n%s", t.ExpiresIn, t.Token)
}
