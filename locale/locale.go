/*
Package locale renders alert messages and notification titles from the
embedded message catalogs (locales/active.<lang>.json).

Formatter implements alerting.MessageFormatter, so the alerting core stays
free of any translation concern: the scheduler and the API pick the engine's
formatter from config.Locale.
*/
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/model"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Message IDs.
const (
	msgEventToday          = "EventToday"
	msgEventUpcoming       = "EventUpcoming"
	msgPaymentOverdue      = "PaymentOverdue"
	msgPaymentDueToday     = "PaymentDueToday"
	msgPaymentDueSoon      = "PaymentDueSoon"
	msgReminderWithMessage = "ReminderWithMessage"
	msgReminderPlain       = "ReminderPlain"
	msgTitleCritical       = "TitleCritical"
	msgTitleHigh           = "TitleHigh"
	msgTitleDefault        = "TitleDefault"
	msgConflictSummary     = "ConflictSummary"
)

// Bundle loads every embedded catalog. English is the fallback language.
func Bundle() (*i18n.Bundle, []string, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, nil, fmt.Errorf("read locales: %w", err)
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if lang == "" {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", name, err)
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return bundle, langs, nil
}

// Formatter localizes alert messages into one language.
type Formatter struct {
	localizer *i18n.Localizer
	lang      string
}

var _ alerting.MessageFormatter = (*Formatter)(nil)

// New returns a formatter for lang, falling back to English for unknown
// languages or missing messages.
func New(lang string) (*Formatter, error) {
	bundle, _, err := Bundle()
	if err != nil {
		return nil, err
	}
	return &Formatter{
		localizer: i18n.NewLocalizer(bundle, lang, language.English.String()),
		lang:      lang,
	}, nil
}

// Lang is the requested language.
func (f *Formatter) Lang() string { return f.lang }

func (f *Formatter) msg(id string, data map[string]any) string {
	out, err := f.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return out
}

func (f *Formatter) EventMessage(rec model.ClientRecord, days int) string {
	data := map[string]any{"Name": rec.DisplayName, "Venue": rec.Venue, "Days": days}
	if days == 0 {
		return f.msg(msgEventToday, data)
	}
	return f.msg(msgEventUpcoming, data)
}

func (f *Formatter) PaymentMessage(rec model.ClientRecord, inst model.Installment, kind alerting.Kind, days int) string {
	data := map[string]any{"Name": rec.DisplayName, "Amount": inst.Amount.StringFixed(2), "Days": days}
	switch {
	case kind == alerting.KindPaymentOverdue:
		return f.msg(msgPaymentOverdue, data)
	case days == 0:
		return f.msg(msgPaymentDueToday, data)
	default:
		return f.msg(msgPaymentDueSoon, data)
	}
}

func (f *Formatter) ReminderMessage(rec model.ClientRecord, rem model.Reminder, days int) string {
	data := map[string]any{"Name": rec.DisplayName, "Message": rem.Message, "Kind": rem.Kind, "Days": days}
	if rem.Message != "" {
		return f.msg(msgReminderWithMessage, data)
	}
	return f.msg(msgReminderPlain, data)
}

// Title is the notification title for an alert priority.
func (f *Formatter) Title(p alerting.Priority) string {
	switch p {
	case alerting.PriorityCritical:
		return f.msg(msgTitleCritical, nil)
	case alerting.PriorityHigh:
		return f.msg(msgTitleHigh, nil)
	default:
		return f.msg(msgTitleDefault, nil)
	}
}

// ConflictSummary describes a conflict group in one line.
func (f *Formatter) ConflictSummary(g alerting.DateConflictGroup) string {
	return f.msg(msgConflictSummary, map[string]any{"Count": len(g.Clients), "Date": g.Date.String()})
}
