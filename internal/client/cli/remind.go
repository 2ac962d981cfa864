package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/client/reminders"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

const remindHelp = `Reminder commands:
  show                 list the dose times
  add HH:MM            add a dose time
  set <n> HH:MM        change the n-th dose time
  rm <n>               remove the n-th dose time
  toggle               switch the reminder on or off
  save                 save the dose times
  delete               delete the reminder
  done                 leave the editor`

// reminderREPL edits one medication's reminder until the user types done.
// Slot numbers are 1-based on screen.
func (a *App) reminderREPL(ctx context.Context, s *reminders.Session) error {
	name := s.Medication().DisplayName(a.language())
	a.println(heading("Reminder for " + name))
	a.showReminder(s)
	a.println(dim("Type 'help' for reminder commands."))

	dirty := false
	for {
		line, err := ask(a.in, a.out, fmt.Sprintf("reminder %s>", name))
		if err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd, args := strings.ToLower(parts[0]), parts[1:]; cmd {
		case "help", "?":
			a.println(remindHelp)
		case "show":
			a.showReminder(s)
		case "add":
			if len(args) != 1 {
				a.println(notice(usageError("add HH:MM")))
				continue
			}
			if err := s.AddSlot(args[0]); err != nil {
				a.println(notice(err))
				continue
			}
			dirty = true
			a.showReminder(s)
		case "set":
			if len(args) != 2 {
				a.println(notice(usageError("set <n> HH:MM")))
				continue
			}
			i, err := slotIndex(args[0])
			if err == nil {
				err = s.UpdateSlot(i, args[1])
			}
			if err != nil {
				a.println(notice(err))
				continue
			}
			dirty = true
			a.showReminder(s)
		case "rm", "remove":
			if len(args) != 1 {
				a.println(notice(usageError("rm <n>")))
				continue
			}
			i, err := slotIndex(args[0])
			if err == nil {
				err = s.RemoveSlot(i)
			}
			if err != nil {
				a.println(notice(err))
				continue
			}
			dirty = true
			a.showReminder(s)
		case "toggle":
			if err := s.ToggleEnabled(ctx); err != nil {
				a.println(notice(err))
				continue
			}
			if !s.Exists() {
				dirty = true
			}
			a.showReminder(s)
		case "save":
			if err := s.Save(ctx); err != nil {
				a.println(notice(err))
				continue
			}
			dirty = false
			a.println(toast("Reminder saved"))
		case "delete":
			ok, err := confirm(a.in, a.out, "Delete this reminder?")
			if err != nil {
				return err
			}
			if err := s.Delete(ctx, ok); err != nil {
				a.println(notice(err))
				continue
			}
			a.println(toast("Reminder deleted"))
			return nil
		case "done", "back", "exit", "quit":
			if dirty {
				ok, err := confirm(a.in, a.out, "Discard unsaved changes?")
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			return nil
		default:
			a.println(fmt.Sprintf("Unknown reminder command: %s (type 'help')", cmd))
		}
	}
}

func (a *App) showReminder(s *reminders.Session) {
	state := "on"
	if !s.Enabled() {
		state = "off"
	}
	saved := ""
	if !s.Exists() {
		saved = dim(" (not saved)")
	}
	var b strings.Builder
	for i, t := range s.Times() {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, t)
	}
	a.println(fmt.Sprintf("Reminder is %s%s\n%s", state, saved, strings.TrimRight(b.String(), "\n")))
}

func slotIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: slot number must be a positive integer", common.ErrValidation)
	}
	return n - 1, nil
}
