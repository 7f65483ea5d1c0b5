package infopoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	scraper "infopoint-backend/lib/scrapers/infopoint"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type newGrade struct {
	Subject string
	Record  scraper.GradeRecord
}

// diffNewGrades returns the grade rows of next that are not present in
// previous, keyed by raw row text within a subject. A nil previous
// snapshot yields no diff, the first fetch should not mail the entire
// history.
func diffNewGrades(previous, next *scraper.Snapshot) []newGrade {
	if previous == nil || next == nil {
		return nil
	}

	var out []newGrade
	for _, name := range next.SubjectOrder {
		seen := map[string]bool{}
		if prevSubject, ok := previous.Subjects[name]; ok {
			for _, record := range prevSubject.History {
				seen[record.RawText] = true
			}
		}
		for _, record := range next.Subjects[name].History {
			if seen[record.RawText] {
				continue
			}
			out = append(out, newGrade{Subject: name, Record: record})
		}
	}
	return out
}

func (s *Service) notifyNewGrades(ctx context.Context, account Account, previous, next *scraper.Snapshot) {
	if s.options.Smtp.NotifyAddress == "" {
		return
	}

	grades := diffNewGrades(previous, next)
	if len(grades) == 0 {
		return
	}

	err := s.sendGradeMail(ctx, account, grades)
	if err != nil {
		slog.WarnContext(ctx, "failed to send grade notification", "account", account.Id, "err", err)
	}
}

func (s *Service) sendGradeMail(ctx context.Context, account Account, grades []newGrade) error {
	_, span := tracer.Start(ctx, "sendGradeMail")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("InfoPoint <%s>", s.options.Smtp.EmailAddress)
	mail.To = []string{s.options.Smtp.NotifyAddress}
	mail.Subject = fmt.Sprintf("New grades for %s", account.Name)

	var body strings.Builder
	fmt.Fprintf(&body, "New grades were posted for %s.\n\n", account.Name)
	for _, grade := range grades {
		date := "no date"
		if grade.Record.HasDate() {
			date = grade.Record.Date.Format("02.01.2006")
		}
		fmt.Fprintf(&body, "%s: %s (%s)", grade.Subject, grade.Record.Value, date)
		if grade.Record.Comment != "" {
			fmt.Fprintf(&body, " %s", grade.Record.Comment)
		}
		body.WriteString("\n")
	}
	mail.Text = []byte(body.String())

	addr := fmt.Sprintf("%s:%d", s.options.Smtp.Server, s.options.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.options.Smtp.EmailAddress, s.options.Smtp.Password, s.options.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
