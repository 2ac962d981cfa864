package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("222"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	blockStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("203")).Padding(0, 1)
	infoBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// notice renders err according to its class: validation and policy errors
// are inline notices, transient ones invite a retry, authoritative ones are
// boxed and name the way out.
func notice(err error) string {
	switch common.KindOf(err) {
	case common.KindNone:
		return ""
	case common.KindValidation:
		return warnStyle.Render("! " + err.Error())
	case common.KindPolicy:
		msg := err.Error()
		if errors.Is(err, common.ErrQuotaExceeded) {
			msg += "\nUpgrade to premium for unlimited medications and searches."
		}
		return warnStyle.Render("! " + msg)
	case common.KindTransient:
		return errorStyle.Render("× " + err.Error() + " (try again)")
	case common.KindAuthoritative:
		return blockStyle.Render(authoritativeHint(err))
	default:
		return errorStyle.Render("× " + err.Error())
	}
}

func authoritativeHint(err error) string {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return "You are signed out. Use 'login' to continue."
	case errors.Is(err, common.ErrTermsNotAccepted):
		return "Please review and accept the terms first: type 'terms'."
	case errors.Is(err, common.ErrSubscriptionInactive):
		return "Your subscription is inactive."
	case errors.Is(err, common.ErrLocalDataNotAvailable):
		return "No profile stored on this device. Use 'login'."
	default:
		return err.Error()
	}
}

// upgradeSurface replaces a protected view when the subscription is
// inactive.
func upgradeSurface(st *models.SubscriptionStatus) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Subscription required"))
	b.WriteString("\n")
	if st != nil && st.Tier == models.TierTrial {
		b.WriteString("Your free trial has ended.")
	} else {
		b.WriteString("Your subscription has expired.")
	}
	b.WriteString("\nPlans: weekly, monthly, yearly or lifetime.")
	b.WriteString("\nRenew to keep managing medications and reminders.")
	return blockStyle.Render(b.String())
}

func toast(msg string) string {
	return successStyle.Render("✓ " + msg)
}

func warning(msg string) string {
	return warnStyle.Render("! " + msg)
}

func heading(s string) string { return titleStyle.Render(s) }

func dim(s string) string { return dimStyle.Render(s) }

func box(s string) string { return infoBoxStyle.Render(s) }

func medicationLine(i int, m models.Medication, lang string, rem *models.Reminder) string {
	line := fmt.Sprintf("%2d. %s", i, m.DisplayName(lang))
	if m.Dosage != "" {
		line += " " + m.Dosage
	}
	if m.ActiveIngredient != "" {
		line += dim(" (" + m.ActiveIngredient + ")")
	}
	if m.Archived {
		line += dim(" [archived]")
	}
	if rem != nil {
		state := "on"
		if !rem.Enabled {
			state = "off"
		}
		line += dim(fmt.Sprintf("  ⏰ %s %s", strings.Join(rem.Times, ", "), state))
	}
	return line + dim("  id:"+m.ID)
}
