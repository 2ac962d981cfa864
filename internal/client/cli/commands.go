package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/client/capture"
	"github.com/dmitrijs2005/medkeeper/internal/client/entitlement"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/session"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

type handler func(ctx context.Context, args []string) error

func (a *App) buildCommands() map[string]command {
	return map[string]command{
		"login":        {run: a.cmdLogin, usage: "[token]", help: "sign in with a bearer token"},
		"logout":       {run: a.signedIn(a.cmdLogout), help: "sign out, keeping device settings"},
		"status":       {run: a.signedIn(a.cmdStatus), help: "show account, subscription and limits"},
		"list":         {run: a.protected(a.cmdList), usage: "[all]", help: "show your medications"},
		"add":          {run: a.protected(a.cmdAdd), usage: "scan|search [gallery]", help: "add a medication"},
		"scan":         {run: a.protected(a.cmdScan), usage: "[gallery]", help: "add a medication from a photo"},
		"confirm":      {run: a.protected(a.cmdConfirm), help: "save the recognized medication"},
		"dismiss":      {run: a.cmdDismiss, help: "drop the recognized medication"},
		"search":       {run: a.protected(a.cmdSearch), usage: "<query>", help: "search the drug registry"},
		"pick":         {run: a.protected(a.cmdPick), usage: "<n>", help: "add the n-th search result"},
		"delete":       {run: a.protected(a.cmdDelete), usage: "<n|id>", help: "delete a medication"},
		"archive":      {run: a.protected(a.cmdArchive(true)), usage: "<n|id>", help: "archive a medication"},
		"unarchive":    {run: a.protected(a.cmdArchive(false)), usage: "<n|id>", help: "restore an archived medication"},
		"remind":       {run: a.protected(a.cmdRemind), usage: "<n|id>", help: "edit reminder times"},
		"interactions": {run: a.protected(a.cmdInteractions), help: "check drug interactions"},
		"lang":         {run: a.cmdLang, usage: "en|ar", help: "set the display language"},
		"terms":        {run: a.cmdTerms, help: "review and accept the terms of use"},
		"tour":         {run: a.cmdTour, help: "a short introduction"},
		"notify":       {run: a.cmdNotify, usage: "[on|off]", help: "reminder notifications on this device"},
		"reset":        {run: a.cmdReset, help: "forget everything stored on this device"},
	}
}

// signedIn rejects the command when no session is stored.
func (a *App) signedIn(fn handler) handler {
	return func(ctx context.Context, args []string) error {
		ok, err := a.store.SignedIn(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrUnauthorized
		}
		return fn(ctx, args)
	}
}

// protected wraps fn in the subscription guard: an inactive subscription
// replaces the command's output with the upgrade surface.
func (a *App) protected(fn handler) handler {
	return a.signedIn(func(ctx context.Context, args []string) error {
		d := a.guard.Decide(ctx)
		if d.Warning != "" {
			a.println(warning(d.Warning))
		}
		if d.Outcome == entitlement.OutcomeUpgrade {
			a.println(upgradeSurface(d.Status))
			return nil
		}
		return fn(ctx, args)
	})
}

// report renders err by class. A rejected session also ends the local one.
func (a *App) report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, common.ErrUnauthorized) {
		a.endSession()
	}
	a.log.Debug(ctx, "command failed", "kind", common.KindOf(err).String(), "error", err)
	a.println(notice(err))
}

func usageError(usage string) error {
	return fmt.Errorf("%w: usage: %s", common.ErrValidation, usage)
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	token := strings.Join(args, " ")
	if token == "" {
		var err error
		if token, err = a.secret("Bearer token:"); err != nil {
			return err
		}
	}
	p, err := a.auth.Login(ctx, token)
	if err != nil {
		return err
	}
	a.repo.Invalidate()
	a.startSession(ctx)
	a.println(toast("Signed in as " + a.userName()))
	if p.Premium {
		a.println(dim("Premium account: no limits apply."))
	}
	return nil
}

func (a *App) cmdLogout(ctx context.Context, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.endSession()
	a.println(toast("Signed out"))
	return nil
}

func (a *App) cmdStatus(ctx context.Context, _ []string) error {
	var b strings.Builder
	b.WriteString(heading("Account") + "\n")
	if p, err := a.auth.Profile(ctx); err == nil {
		fmt.Fprintf(&b, "User:         %s\n", firstNonEmpty(p.Name, p.Email, p.ID, "unknown"))
		if p.Premium {
			b.WriteString("Premium:      yes\n")
		}
	}

	if err := a.guard.Refresh(ctx); err != nil {
		fmt.Fprintf(&b, "Subscription: unavailable (%v)\n", err)
	}
	if st := a.guard.Status(); st != nil {
		state := "inactive"
		if st.Active {
			state = "active"
		}
		fmt.Fprintf(&b, "Subscription: %s, %s", st.Tier, state)
		if st.Active && !st.IsLifetime() {
			fmt.Fprintf(&b, ", %.0fh left", st.HoursRemaining)
		}
		b.WriteString("\n")
	}

	if l, err := a.repo.Limits(ctx); err == nil {
		if l.IsPremium || a.guard.Unlimited() {
			b.WriteString("Limits:       unlimited\n")
		} else {
			fmt.Fprintf(&b, "Limits:       %d medication(s), %d search(es) left\n", l.MedicationsRemaining, l.SearchesRemaining)
		}
	} else {
		fmt.Fprintf(&b, "Limits:       unavailable (%v)\n", err)
	}

	if n, ok := a.badgeCount(); ok {
		fmt.Fprintf(&b, "Reminders:    %d active\n", n)
	}
	fmt.Fprintf(&b, "Language:     %s", a.language())
	a.println(box(b.String()))
	return nil
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	all := len(args) > 0 && args[0] == "all"

	a.mu.Lock()
	a.listing = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.listing = false
		a.mu.Unlock()
	}()

	meds, err := a.repo.Medications(ctx)
	if err != nil {
		return err
	}
	if !all {
		meds = models.ActiveOnly(meds)
	}
	rems, err := a.repo.Reminders(ctx)
	if err != nil {
		a.log.Warn(ctx, "reminders unavailable for list", "error", err)
	}
	byMed := make(map[string]*models.Reminder, len(rems))
	for i := range rems {
		byMed[rems[i].MedicationID] = &rems[i]
	}

	ids := make([]string, 0, len(meds))
	a.println(heading("Your medications"))
	if len(meds) == 0 {
		a.println(dim("No medications yet. Add one with 'add scan' or 'add search'."))
	}
	lang := a.language()
	for i, m := range meds {
		a.println(medicationLine(i+1, m, lang, byMed[m.ID]))
		ids = append(ids, m.ID)
	}

	a.mu.Lock()
	a.lastListed = ids
	a.mu.Unlock()
	return nil
}

func (a *App) cmdAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("add scan|search")
	}
	method := strings.ToLower(args[0])
	if err := a.terms.Require(ctx, method); err != nil {
		return err
	}
	return a.openAdd(method)(ctx, args[1:])
}

func (a *App) cmdScan(ctx context.Context, args []string) error {
	return a.cmdAdd(ctx, append([]string{models.MethodScan}, args...))
}

// openAdd starts the add flow for method. It is also the target of a
// replayed pending action.
func (a *App) openAdd(method string) handler {
	return func(ctx context.Context, args []string) error {
		switch method {
		case models.MethodScan:
			src := capture.SourceCamera
			if len(args) > 0 && args[0] == "gallery" {
				src = capture.SourceGallery
			}
			return a.scan(ctx, src)
		case models.MethodSearch:
			q, err := ask(a.in, a.out, "Search the drug registry:")
			if err != nil {
				return err
			}
			if q == "" {
				a.println(dim("Search cancelled."))
				return nil
			}
			return a.search(ctx, q)
		default:
			return usageError("add scan|search")
		}
	}
}

func (a *App) scan(ctx context.Context, src capture.Source) error {
	res, err := a.capture.Run(ctx, src)
	if err != nil {
		if errors.Is(err, common.ErrCaptureCancelled) {
			a.println(dim("Capture cancelled."))
			return nil
		}
		if res.Retryable {
			return fmt.Errorf("%w. Run 'scan' again", err)
		}
		return err
	}
	return a.showCapture(res)
}

func (a *App) showCapture(res capture.Result) error {
	switch {
	case res.NeedsConfirmation:
		c := res.Candidate
		body := fmt.Sprintf("%s\n%s %s", heading("Is this right?"), c.Name, c.Dosage)
		if c.ActiveIngredient != "" {
			body += "\nActive ingredient: " + c.ActiveIngredient
		}
		if c.Frequency != "" {
			body += "\nFrequency: " + c.Frequency
		}
		body += "\n" + dim("Type 'confirm' to save or 'dismiss' to discard.")
		a.println(box(body))
	case res.Medication != nil:
		a.println(toast(fmt.Sprintf("Added %s %s", res.Medication.DisplayName(a.language()), res.Medication.Dosage)))
	}
	return nil
}

func (a *App) cmdConfirm(ctx context.Context, _ []string) error {
	res, err := a.capture.Confirm(ctx)
	if err != nil {
		return err
	}
	return a.showCapture(res)
}

func (a *App) cmdDismiss(context.Context, []string) error {
	a.capture.Dismiss()
	a.println(dim("Dismissed."))
	return nil
}

func (a *App) cmdSearch(ctx context.Context, args []string) error {
	if err := a.terms.Require(ctx, models.MethodSearch); err != nil {
		return err
	}
	if len(args) == 0 {
		return a.openAdd(models.MethodSearch)(ctx, nil)
	}
	return a.search(ctx, strings.Join(args, " "))
}

func (a *App) search(ctx context.Context, q string) error {
	items, err := a.catalog.Search(ctx, q)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.println(dim(fmt.Sprintf("Nothing found for %q.", q)))
		return nil
	}
	a.println(heading(fmt.Sprintf("Results for %q", q)))
	for i, it := range items {
		name := it.TradeName
		if a.language() == common.LanguageArabic && it.TradeNameAr != "" {
			name = it.TradeNameAr
		}
		line := fmt.Sprintf("%2d. %s %s", i+1, name, it.Dosage())
		if it.ScientificName != "" {
			line += dim(" (" + it.ScientificName + ")")
		}
		if it.Manufacturer != "" {
			line += dim(" · " + it.Manufacturer)
		}
		a.println(line)
	}
	a.println(dim("Type 'pick <n>' to add one."))
	return nil
}

func (a *App) cmdPick(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("pick <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return usageError("pick <n>")
	}
	m, err := a.catalog.Pick(ctx, n)
	if err != nil {
		return err
	}
	a.println(toast(fmt.Sprintf("Added %s %s", m.DisplayName(a.language()), m.Dosage)))
	return nil
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	m, err := a.resolve(ctx, args, "delete <n|id>")
	if err != nil {
		return err
	}
	ok, err := confirm(a.in, a.out, fmt.Sprintf("Delete %s? This also removes its reminder.", m.Name))
	if err != nil {
		return err
	}
	if !ok {
		a.println(dim("Kept."))
		return nil
	}
	if err := a.repo.Delete(ctx, m.ID); err != nil {
		return err
	}
	a.println(toast("Deleted " + m.Name))
	return nil
}

func (a *App) cmdArchive(archived bool) handler {
	usage := "archive <n|id>"
	if !archived {
		usage = "unarchive <n|id>"
	}
	return func(ctx context.Context, args []string) error {
		m, err := a.resolve(ctx, args, usage)
		if err != nil {
			return err
		}
		if m.Archived == archived {
			return fmt.Errorf("%w: %s is already %s", common.ErrValidation, m.Name, map[bool]string{true: "archived", false: "active"}[archived])
		}
		return a.repo.SetArchived(ctx, m.ID, archived)
	}
}

func (a *App) cmdRemind(ctx context.Context, args []string) error {
	m, err := a.resolve(ctx, args, "remind <n|id>")
	if err != nil {
		return err
	}
	if m.Archived {
		return fmt.Errorf("%w: unarchive %s before editing its reminder", common.ErrValidation, m.Name)
	}
	s, err := a.editor.Open(ctx, m)
	if err != nil {
		return err
	}
	return a.reminderREPL(ctx, s)
}

func (a *App) cmdInteractions(ctx context.Context, _ []string) error {
	res, err := a.agg.Report(ctx)
	if err != nil && res.Report == nil {
		return err
	}
	a.println(a.render(interactionsMarkdown(res)))
	if err != nil {
		a.println(notice(err))
	}
	return nil
}

func (a *App) cmdLang(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("lang en|ar")
	}
	lang := strings.ToLower(args[0])
	if lang != common.LanguageEnglish && lang != common.LanguageArabic {
		return usageError("lang en|ar")
	}
	if err := a.store.SetLanguage(ctx, lang); err != nil {
		return err
	}
	a.mu.Lock()
	a.lang = lang
	a.mu.Unlock()
	a.agg.SetLanguage(lang)
	a.println(toast("Language set to " + lang))
	return nil
}

const termsText = `medkeeper helps you keep track of your medications.
It does not replace advice from a doctor or pharmacist.
Recognition and interaction results may be incomplete or wrong;
always check the package leaflet.`

func (a *App) cmdTerms(ctx context.Context, _ []string) error {
	if ok, err := a.terms.Accepted(ctx); err == nil && ok {
		a.println(dim("You have already accepted the terms."))
		return nil
	}
	a.println(box(heading("Terms of use") + "\n" + termsText))
	ok, err := confirm(a.in, a.out, "Accept the terms of use?")
	if err != nil {
		return err
	}
	if !ok {
		a.println(dim("Not accepted. Adding medications stays unavailable."))
		return nil
	}
	if _, err := a.terms.Accept(ctx); err != nil {
		return err
	}
	a.println(toast("Terms accepted"))
	return nil
}

func (a *App) cmdTour(ctx context.Context, _ []string) error {
	steps := []string{
		"1. 'add scan' photographs a package and recognizes the medication.",
		"2. 'add search' finds it in the drug registry instead.",
		"3. 'remind <n>' sets the times you take it.",
		"4. 'interactions' checks your active medications against each other.",
		"5. 'archive <n>' pauses a medication without deleting it.",
	}
	a.println(box(heading("Welcome to medkeeper") + "\n" + strings.Join(steps, "\n")))
	return a.store.SetFlag(ctx, session.FlagTourCompleted, true)
}

func (a *App) cmdNotify(ctx context.Context, args []string) error {
	if len(args) == 0 {
		on, err := a.store.Flag(ctx, session.FlagNotificationsOptIn)
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("Notifications: %s", map[bool]string{true: "on", false: "off"}[on]))
		return nil
	}
	var on bool
	switch strings.ToLower(args[0]) {
	case "on":
		on = true
	case "off":
	default:
		return usageError("notify on|off")
	}
	if err := a.store.SetFlag(ctx, session.FlagNotificationsOptIn, on); err != nil {
		return err
	}
	a.println(toast("Notifications " + args[0]))
	return nil
}

func (a *App) cmdReset(ctx context.Context, _ []string) error {
	ok, err := confirm(a.in, a.out, "Sign out and forget terms, language and tour on this device?")
	if err != nil || !ok {
		return err
	}
	a.endSession()
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.lang = a.cfg.Language
	a.mu.Unlock()
	a.agg.SetLanguage(a.cfg.Language)
	a.println(toast("Device data cleared"))
	return nil
}

// resolve finds a medication by its number in the last list, its id, a
// unique id prefix or its exact name.
func (a *App) resolve(ctx context.Context, args []string, usage string) (models.Medication, error) {
	if len(args) == 0 {
		return models.Medication{}, usageError(usage)
	}
	ref := strings.Join(args, " ")

	if n, err := strconv.Atoi(ref); err == nil {
		a.mu.Lock()
		listed := a.lastListed
		a.mu.Unlock()
		if n < 1 || n > len(listed) {
			return models.Medication{}, fmt.Errorf("%w: no medication number %d, run 'list' first", common.ErrValidation, n)
		}
		return a.repo.Medication(ctx, listed[n-1])
	}

	meds, err := a.repo.Medications(ctx)
	if err != nil {
		return models.Medication{}, err
	}
	var matches []models.Medication
	for _, m := range meds {
		if m.ID == ref {
			return m, nil
		}
		if strings.HasPrefix(m.ID, ref) || strings.EqualFold(m.Name, ref) {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return models.Medication{}, fmt.Errorf("medication %q: %w", ref, common.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.Medication{}, fmt.Errorf("%w: %q matches %d medications", common.ErrValidation, ref, len(matches))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
