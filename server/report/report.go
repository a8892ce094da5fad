// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package report renders the localized training data and classifier model statistics.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/modelstore"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Statistics is everything a report shows for one address family.
type Statistics struct {
	Family definitions.AddressFamily
	Corpus login.CorpusStatistics

	// Latest is nil when no model has been trained yet.
	Latest *modelstore.StoredModel

	// History is ordered newest first.
	History []modelstore.HistoryEntry

	// MaxAge is the amount of log (seconds) a model needs before it is trained.
	MaxAge int64
}

// Renderer writes reports in one language.
type Renderer struct {
	tag       language.Tag
	localizer *i18n.Localizer
	printer   *message.Printer
	location  *time.Location
}

// NewRenderer returns a Renderer for the supported language closest to lang. Timestamps are
// printed in UTC.
func NewRenderer(m Manager, lang string) *Renderer {
	tag := m.Match(lang)

	return &Renderer{
		tag:       tag,
		localizer: i18n.NewLocalizer(m.GetBundle(), tag.String()),
		printer:   message.NewPrinter(tag),
		location:  time.UTC,
	}
}

// Language returns the language the Renderer writes.
func (r *Renderer) Language() language.Tag {
	return r.tag
}

// Render writes the report for s to w.
func (r *Renderer) Render(w io.Writer, s Statistics) error {
	var sb strings.Builder

	sb.WriteString(r.localize("training_data_statistics", nil))
	sb.WriteByte('\n')
	sb.WriteString(r.localize("training_data_captured", map[string]any{
		"Total":    r.Number(s.Corpus.Total),
		"Distinct": r.Number(s.Corpus.DistinctPairs),
	}))
	sb.WriteString("\n\n")

	sb.WriteString(r.localize("classifier_model_statistics", nil))
	sb.WriteString(" (")
	sb.WriteString(r.localize(familyMessageID(s.Family), nil))
	sb.WriteString(")\n")

	switch {
	case s.Latest == nil || s.Latest.Model == nil:
		sb.WriteString(r.localize("no_model_trained", map[string]any{
			"Days": r.Number(int64(math.Ceil(float64(s.MaxAge) / definitions.SecondsPerDay))),
		}))
		sb.WriteByte('\n')
	case s.Latest.Evaluation == nil:
		sb.WriteString(r.localize("model_not_evaluated", map[string]any{
			"Time": r.Time(s.Latest.Model.TrainedAt),
		}))
		sb.WriteByte('\n')
	default:
		sb.WriteString(r.localize("model_performance", map[string]any{
			"Time":      r.Time(s.Latest.Model.TrainedAt),
			"Recall":    r.Percent(s.Latest.Evaluation.Recall),
			"Precision": r.Percent(s.Latest.Evaluation.Precision),
		}))
		sb.WriteByte('\n')
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	if len(s.History) == 0 {
		return nil
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	return r.history(w, s.History)
}

func (r *Renderer) history(w io.Writer, entries []modelstore.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join([]string{
		r.localize("trained_at", nil),
		r.localize("precision", nil),
		r.localize("recall", nil),
	}, "\t"))

	for _, entry := range entries {
		precision := r.localize("not_evaluated", nil)
		recall := precision

		if entry.Evaluated {
			precision = r.Percent(entry.Precision) + "%"
			recall = r.Percent(entry.Recall) + "%"
		}

		fmt.Fprintln(tw, strings.Join([]string{r.Time(entry.TrainedAt), precision, recall}, "\t"))
	}

	return tw.Flush()
}

// Percent formats a ratio in [0, 1] as a percentage with one decimal.
func (r *Renderer) Percent(ratio float64) string {
	return r.printer.Sprintf("%.1f", ratio*100)
}

// Number formats an integer with the grouping of the report language.
func (r *Renderer) Number(n int64) string {
	return r.printer.Sprintf("%d", n)
}

// Time formats a Unix timestamp.
func (r *Renderer) Time(ts int64) string {
	return time.Unix(ts, 0).In(r.location).Format(time.DateTime)
}

func (r *Renderer) localize(messageID string, data map[string]any) string {
	localization, err := r.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		util.DebugModule(definitions.DbgReport,
			"message_id", messageID,
			definitions.LogKeyMsg, "Failed to get localized message",
			definitions.LogKeyError, err,
		)

		return messageID
	}

	return localization
}

func familyMessageID(family definitions.AddressFamily) string {
	if family == definitions.AddressFamilyV6 {
		return "IPv6"
	}

	return "IPv4"
}
